package store

import (
	"database/sql"
	"fmt"
)

// PutUsage replaces the usage row for (ComponentID, DependentFileID)
// together with its used channels.
func (s *Store) PutUsage(u *Usage) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := putUsageTx(tx, u); err != nil {
		return err
	}
	return tx.Commit()
}

func putUsageTx(tx *sql.Tx, u *Usage) error {
	if err := deleteUsageTx(tx, u.ComponentID, u.DependentFileID); err != nil {
		return err
	}
	res, err := tx.Exec(
		"INSERT INTO usages (component_id, dependent_file_id) VALUES (?, ?)",
		u.ComponentID, u.DependentFileID,
	)
	if err != nil {
		return fmt.Errorf("insert usage: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	u.ID = id
	for _, ch := range []struct {
		kind     string
		ordinals []int
	}{
		{KindProp, u.Props},
		{KindEvent, u.Events},
		{KindSlot, u.Slots},
	} {
		for _, ord := range ch.ordinals {
			if _, err := tx.Exec(
				"INSERT OR IGNORE INTO used_channels (usage_id, kind, ordinal) VALUES (?, ?, ?)",
				id, ch.kind, ord,
			); err != nil {
				return fmt.Errorf("insert used %s: %w", ch.kind, err)
			}
		}
	}
	return nil
}

func deleteUsageTx(tx *sql.Tx, componentID, dependentFileID int64) error {
	const match = "SELECT id FROM usages WHERE component_id = ? AND dependent_file_id = ?"
	if _, err := tx.Exec("DELETE FROM used_channels WHERE usage_id IN ("+match+")", componentID, dependentFileID); err != nil {
		return fmt.Errorf("delete used channels: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM usages WHERE component_id = ? AND dependent_file_id = ?", componentID, dependentFileID); err != nil {
		return fmt.Errorf("delete usage: %w", err)
	}
	return nil
}

// DeleteUsage removes the usage row for one (component, dependent) pair.
func (s *Store) DeleteUsage(componentID, dependentFileID int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := deleteUsageTx(tx, componentID, dependentFileID); err != nil {
		return err
	}
	return tx.Commit()
}

// DeleteAllUsages clears the analysis tables.
func (s *Store) DeleteAllUsages() error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM used_channels"); err != nil {
		return fmt.Errorf("delete used channels: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM usages"); err != nil {
		return fmt.Errorf("delete usages: %w", err)
	}
	return tx.Commit()
}

func (s *Store) queryUsages(query string, args ...any) ([]*Usage, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query usages: %w", err)
	}
	var us []*Usage
	for rows.Next() {
		u := &Usage{}
		if err := rows.Scan(&u.ID, &u.ComponentID, &u.DependentFileID); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan usage: %w", err)
		}
		us = append(us, u)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(us) == 0 {
		return us, nil
	}

	byID := make(map[int64]*Usage, len(us))
	ids := make([]int64, len(us))
	for i, u := range us {
		byID[u.ID] = u
		ids[i] = u.ID
	}
	chRows, err := s.db.Query(
		"SELECT usage_id, kind, ordinal FROM used_channels WHERE usage_id IN ("+placeholderList(len(ids))+") ORDER BY usage_id, kind, ordinal",
		int64sToArgs(ids)...,
	)
	if err != nil {
		return nil, fmt.Errorf("used channels: %w", err)
	}
	defer chRows.Close()
	for chRows.Next() {
		var id int64
		var kind string
		var ord int
		if err := chRows.Scan(&id, &kind, &ord); err != nil {
			return nil, fmt.Errorf("scan used channel: %w", err)
		}
		u := byID[id]
		switch kind {
		case KindProp:
			u.Props = append(u.Props, ord)
		case KindEvent:
			u.Events = append(u.Events, ord)
		case KindSlot:
			u.Slots = append(u.Slots, ord)
		}
	}
	return us, chRows.Err()
}

// UsagesByComponent returns every dependent's usage of a component.
func (s *Store) UsagesByComponent(componentID int64) ([]*Usage, error) {
	return s.queryUsages(
		"SELECT id, component_id, dependent_file_id FROM usages WHERE component_id = ? ORDER BY dependent_file_id",
		componentID,
	)
}

// UsagesByDependent returns the usages recorded for one dependent file.
func (s *Store) UsagesByDependent(fileID int64) ([]*Usage, error) {
	return s.queryUsages(
		"SELECT id, component_id, dependent_file_id FROM usages WHERE dependent_file_id = ? ORDER BY component_id",
		fileID,
	)
}

// Usages returns every stored usage row.
func (s *Store) Usages() ([]*Usage, error) {
	return s.queryUsages("SELECT id, component_id, dependent_file_id FROM usages ORDER BY component_id, dependent_file_id")
}
