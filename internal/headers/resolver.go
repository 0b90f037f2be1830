// Package headers maps free-form CSV column names to the semantic roles the
// screener needs (symbol, open, high, ...).
//
// Resolution is a first-match keyword search: headers are scanned in their
// original order and, for each header, the role's fragments in priority
// order. The result is an immutable Roles value built once per upload.
package headers

import (
	"encoding/json"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Role is a semantic column role
type Role string

const (
	RoleSymbol    Role = "symbol"
	RoleOpen      Role = "open"
	RoleHigh      Role = "high"
	RoleLow       Role = "low"
	RoleClose     Role = "close"
	RoleVolume    Role = "volume"
	RoleAvgVolume Role = "avg_volume"
	RoleMarketCap Role = "market_cap"
	RoleDate      Role = "date"
	RoleTime      Role = "time"
)

// keywords holds each role's fragments in priority order
var keywords = map[Role][]string{
	RoleSymbol:    {"symbol", "ticker", "scrip", "code"},
	RoleOpen:      {"open", "opening"},
	RoleHigh:      {"high"},
	RoleLow:       {"low"},
	RoleClose:     {"close", "last", "ltp"},
	RoleVolume:    {"volume", "vol"},
	RoleAvgVolume: {"avg volume", "average volume", "avgvol", "5 day", "5day"},
	RoleMarketCap: {"market cap", "mcap", "market capitalization", "marketcap"},
	RoleDate:      {"date"},
	RoleTime:      {"time", "datetime"},
}

// displayNames are used in user-facing messages
var displayNames = map[Role]string{
	RoleSymbol:    "Symbol",
	RoleOpen:      "Open",
	RoleHigh:      "High",
	RoleLow:       "Low",
	RoleClose:     "Close",
	RoleVolume:    "Volume",
	RoleAvgVolume: "Avg Volume (5d)",
	RoleMarketCap: "Market Cap",
	RoleDate:      "Date",
	RoleTime:      "Time",
}

// AllRoles returns every role in resolution order
func AllRoles() []Role {
	return []Role{
		RoleSymbol, RoleOpen, RoleHigh, RoleLow, RoleClose,
		RoleVolume, RoleAvgVolume, RoleMarketCap, RoleDate, RoleTime,
	}
}

// DisplayRoles are the roles whose columns are shown in tables and exports
func DisplayRoles() []Role {
	return []Role{RoleSymbol, RoleOpen, RoleHigh, RoleLow, RoleClose, RoleVolume}
}

// Keywords returns a copy of the role's fragments
func (r Role) Keywords() []string {
	kw := keywords[r]
	out := make([]string, len(kw))
	copy(out, kw)
	return out
}

// DisplayName returns the human-readable role name
func (r Role) DisplayName() string {
	if name, ok := displayNames[r]; ok {
		return name
	}
	return string(r)
}

// Normalize lowercases and trims a header or cell for comparison.
// A Caser is stateful, so one is built per call.
func Normalize(s string) string {
	return cases.Lower(language.Und).String(strings.TrimSpace(s))
}

// Find returns the first header whose normalized text contains any fragment.
func Find(headerList []string, fragments []string) (string, bool) {
	for _, h := range headerList {
		nh := Normalize(h)
		for _, kw := range fragments {
			if strings.Contains(nh, kw) {
				return h, true
			}
		}
	}
	return "", false
}

// FindContaining returns the first header whose normalized text contains s
func FindContaining(headerList []string, s string) (string, bool) {
	return Find(headerList, []string{s})
}

// Roles is the resolved role → header mapping of one upload
type Roles struct {
	byRole map[Role]string
}

// Resolve maps every role against the header list
// ⭐ SSOT: role resolution happens here only; callers pass the Roles along
func Resolve(headerList []string) Roles {
	byRole := make(map[Role]string, len(keywords))
	for _, role := range AllRoles() {
		if h, ok := Find(headerList, keywords[role]); ok {
			byRole[role] = h
		}
	}
	return Roles{byRole: byRole}
}

// Header returns the header resolved for role
func (r Roles) Header(role Role) (string, bool) {
	h, ok := r.byRole[role]
	return h, ok
}

// Has reports whether role resolved
func (r Roles) Has(role Role) bool {
	_, ok := r.byRole[role]
	return ok
}

// Missing returns the roles among want that did not resolve, in order
func (r Roles) Missing(want ...Role) []Role {
	missing := make([]Role, 0)
	for _, role := range want {
		if !r.Has(role) {
			missing = append(missing, role)
		}
	}
	return missing
}

// DisplayHeaders returns the resolved headers of the display roles
func (r Roles) DisplayHeaders() []string {
	out := make([]string, 0, len(DisplayRoles()))
	seen := make(map[string]bool)
	for _, role := range DisplayRoles() {
		h, ok := r.byRole[role]
		if !ok || seen[h] {
			continue
		}
		seen[h] = true
		out = append(out, h)
	}
	return out
}

// Map returns a copy of the mapping keyed by role name
func (r Roles) Map() map[string]string {
	out := make(map[string]string, len(r.byRole))
	for role, h := range r.byRole {
		out[string(role)] = h
	}
	return out
}

// MarshalJSON writes the mapping as an object of role name → header
func (r Roles) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Map())
}

// DisplayNames joins role display names for messages
func DisplayNames(roles []Role) string {
	names := make([]string, len(roles))
	for i, role := range roles {
		names[i] = role.DisplayName()
	}
	return strings.Join(names, ", ")
}
