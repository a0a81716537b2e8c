package store

import (
	"database/sql"
	"fmt"
)

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

type rowScanner interface {
	Scan(dest ...any) error
}

// --- File operations ---

func (s *Store) InsertFile(f *File) (int64, error) {
	res, err := s.db.Exec(
		"INSERT INTO files (path, language, hash, last_indexed) VALUES (?, ?, ?, ?)",
		f.Path, f.Language, f.Hash, f.LastIndexed,
	)
	if err != nil {
		return 0, fmt.Errorf("insert file: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	f.ID = id
	return id, nil
}

// UpdateFile rewrites the hash, language and index time of an existing file.
func (s *Store) UpdateFile(f *File) error {
	_, err := s.db.Exec(
		"UPDATE files SET language = ?, hash = ?, last_indexed = ? WHERE id = ?",
		f.Language, f.Hash, f.LastIndexed, f.ID,
	)
	if err != nil {
		return fmt.Errorf("update file: %w", err)
	}
	return nil
}

func (s *Store) FileByPath(path string) (*File, error) {
	f := &File{}
	err := s.db.QueryRow(
		"SELECT id, path, language, hash, last_indexed FROM files WHERE path = ?", path,
	).Scan(&f.ID, &f.Path, &f.Language, &f.Hash, &f.LastIndexed)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("file by path: %w", err)
	}
	return f, nil
}

func (s *Store) FileByID(id int64) (*File, error) {
	f := &File{}
	err := s.db.QueryRow(
		"SELECT id, path, language, hash, last_indexed FROM files WHERE id = ?", id,
	).Scan(&f.ID, &f.Path, &f.Language, &f.Hash, &f.LastIndexed)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("file by id: %w", err)
	}
	return f, nil
}

// Files returns every indexed file ordered by path.
func (s *Store) Files() ([]*File, error) {
	rows, err := s.db.Query("SELECT id, path, language, hash, last_indexed FROM files ORDER BY path")
	if err != nil {
		return nil, fmt.Errorf("files: %w", err)
	}
	defer rows.Close()
	var files []*File
	for rows.Next() {
		f := &File{}
		if err := rows.Scan(&f.ID, &f.Path, &f.Language, &f.Hash, &f.LastIndexed); err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

// --- Component operations ---

// InsertComponent stores the component row and all of its channels in
// one transaction. DeclarationHash is computed when empty.
func (s *Store) InsertComponent(c *Component) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	id, err := insertComponentTx(tx, c)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit component: %w", err)
	}
	c.ID = id
	return id, nil
}

func insertComponentTx(ex execer, c *Component) (int64, error) {
	if c.DeclarationHash == "" {
		c.DeclarationHash = ComputeDeclarationHash(c.Name, c.Props, c.Events, c.Slots)
	}
	res, err := ex.Exec(
		"INSERT INTO components (file_id, name, declaration_hash) VALUES (?, ?, ?)",
		c.FileID, c.Name, c.DeclarationHash,
	)
	if err != nil {
		return 0, fmt.Errorf("insert component %q: %w", c.Name, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	for _, p := range c.Props {
		if _, err := ex.Exec(
			"INSERT INTO props (component_id, ordinal, name, type_expr, required, default_json) VALUES (?, ?, ?, ?, ?, ?)",
			id, p.Ordinal, p.Name, p.TypeExpr, p.Required, marshalDefault(p.Default),
		); err != nil {
			return 0, fmt.Errorf("insert prop %q: %w", p.Name, err)
		}
	}
	for _, e := range c.Events {
		if _, err := ex.Exec(
			"INSERT INTO events (component_id, ordinal, name, is_sync) VALUES (?, ?, ?, ?)",
			id, e.Ordinal, e.Name, e.IsSync,
		); err != nil {
			return 0, fmt.Errorf("insert event %q: %w", e.Name, err)
		}
	}
	for _, sl := range c.Slots {
		if _, err := ex.Exec(
			"INSERT INTO slots (component_id, ordinal, name) VALUES (?, ?, ?)",
			id, sl.Ordinal, sl.Name,
		); err != nil {
			return 0, fmt.Errorf("insert slot %q: %w", sl.Name, err)
		}
	}
	return id, nil
}

const componentColumns = `c.id, c.file_id, f.path, c.name, COALESCE(c.declaration_hash, '')
	FROM components c JOIN files f ON f.id = c.file_id`

func scanComponent(sc rowScanner) (*Component, error) {
	c := &Component{}
	if err := sc.Scan(&c.ID, &c.FileID, &c.Path, &c.Name, &c.DeclarationHash); err != nil {
		return nil, err
	}
	return c, nil
}

// queryComponents runs a component query and loads channels for each row.
func (s *Store) queryComponents(query string, args ...any) ([]*Component, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query components: %w", err)
	}
	var comps []*Component
	for rows.Next() {
		c, err := scanComponent(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan component: %w", err)
		}
		comps = append(comps, c)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	for _, c := range comps {
		if err := s.loadChannels(c); err != nil {
			return nil, err
		}
	}
	return comps, nil
}

func (s *Store) queryComponent(query string, args ...any) (*Component, error) {
	comps, err := s.queryComponents(query, args...)
	if err != nil {
		return nil, err
	}
	if len(comps) == 0 {
		return nil, nil
	}
	return comps[0], nil
}

// Components returns all components ordered by file path.
func (s *Store) Components() ([]*Component, error) {
	return s.queryComponents("SELECT " + componentColumns + " ORDER BY f.path")
}

// ComponentByFile returns the component declared by fileID, or nil.
func (s *Store) ComponentByFile(fileID int64) (*Component, error) {
	return s.queryComponent("SELECT "+componentColumns+" WHERE c.file_id = ?", fileID)
}

// ComponentByPath returns the component declared in path, or nil.
func (s *Store) ComponentByPath(path string) (*Component, error) {
	return s.queryComponent("SELECT "+componentColumns+" WHERE f.path = ?", path)
}

// ComponentByID returns the component with the given ID, or nil.
func (s *Store) ComponentByID(id int64) (*Component, error) {
	return s.queryComponent("SELECT "+componentColumns+" WHERE c.id = ?", id)
}

// ComponentsByName returns every component with the given name. Names
// are not unique across a project.
func (s *Store) ComponentsByName(name string) ([]*Component, error) {
	return s.queryComponents("SELECT "+componentColumns+" WHERE c.name = ? ORDER BY f.path", name)
}

func (s *Store) loadChannels(c *Component) error {
	rows, err := s.db.Query(
		"SELECT ordinal, name, COALESCE(type_expr, ''), required, default_json FROM props WHERE component_id = ? ORDER BY ordinal",
		c.ID,
	)
	if err != nil {
		return fmt.Errorf("props: %w", err)
	}
	for rows.Next() {
		var p Prop
		var def sql.NullString
		if err := rows.Scan(&p.Ordinal, &p.Name, &p.TypeExpr, &p.Required, &def); err != nil {
			rows.Close()
			return fmt.Errorf("scan prop: %w", err)
		}
		if def.Valid {
			p.Default = unmarshalDefault(def.String)
		}
		c.Props = append(c.Props, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = s.db.Query("SELECT ordinal, name, is_sync FROM events WHERE component_id = ? ORDER BY ordinal", c.ID)
	if err != nil {
		return fmt.Errorf("events: %w", err)
	}
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.Ordinal, &e.Name, &e.IsSync); err != nil {
			rows.Close()
			return fmt.Errorf("scan event: %w", err)
		}
		c.Events = append(c.Events, e)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = s.db.Query("SELECT ordinal, name FROM slots WHERE component_id = ? ORDER BY ordinal", c.ID)
	if err != nil {
		return fmt.Errorf("slots: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var sl Slot
		if err := rows.Scan(&sl.Ordinal, &sl.Name); err != nil {
			return fmt.Errorf("scan slot: %w", err)
		}
		c.Slots = append(c.Slots, sl)
	}
	return rows.Err()
}

// --- Import operations ---

func (s *Store) InsertImport(imp *Import) (int64, error) {
	id, err := insertImportTx(s.db, imp)
	if err != nil {
		return 0, err
	}
	imp.ID = id
	return id, nil
}

func insertImportTx(ex execer, imp *Import) (int64, error) {
	res, err := ex.Exec(
		`INSERT INTO imports (file_id, source, imported_name, local_alias, registered_as, resolved_path)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		imp.FileID, imp.Source, imp.ImportedName, imp.LocalAlias, imp.RegisteredAs, imp.ResolvedPath,
	)
	if err != nil {
		return 0, fmt.Errorf("insert import %q: %w", imp.Source, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

const importColumns = `id, file_id, source, COALESCE(imported_name, ''), COALESCE(local_alias, ''),
	COALESCE(registered_as, ''), COALESCE(resolved_path, '') FROM imports`

func (s *Store) queryImports(query string, args ...any) ([]*Import, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query imports: %w", err)
	}
	defer rows.Close()
	var imps []*Import
	for rows.Next() {
		imp := &Import{}
		if err := rows.Scan(&imp.ID, &imp.FileID, &imp.Source, &imp.ImportedName,
			&imp.LocalAlias, &imp.RegisteredAs, &imp.ResolvedPath); err != nil {
			return nil, fmt.Errorf("scan import: %w", err)
		}
		imps = append(imps, imp)
	}
	return imps, rows.Err()
}

func (s *Store) ImportsByFile(fileID int64) ([]*Import, error) {
	return s.queryImports("SELECT "+importColumns+" WHERE file_id = ? ORDER BY id", fileID)
}

// ResolvedImports returns every import whose source resolved to a file
// in the project.
func (s *Store) ResolvedImports() ([]*Import, error) {
	return s.queryImports("SELECT " + importColumns + " WHERE resolved_path <> '' ORDER BY file_id, id")
}

// Imports returns every stored import.
func (s *Store) Imports() ([]*Import, error) {
	return s.queryImports("SELECT " + importColumns + " ORDER BY file_id, id")
}

// UpdateImportResolution rewrites the resolved target path of an import.
func (s *Store) UpdateImportResolution(importID int64, resolvedPath string) error {
	_, err := s.db.Exec("UPDATE imports SET resolved_path = ? WHERE id = ?", resolvedPath, importID)
	if err != nil {
		return fmt.Errorf("update import resolution: %w", err)
	}
	return nil
}
