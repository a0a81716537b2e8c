// Package rules embeds the default rule scripts. Each script lives at
// <kind>/<name>.risor, kind being prop, event or slot, and evaluates to
// true when the channel is used on the instance.
package rules

import "embed"

//go:embed slot/*.risor
var FS embed.FS
