package auth

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/elevate-portal/backend/internal/models"
)

// NormalizeGroups flattens a group-membership claim into a list of trimmed,
// non-empty group names. Identity providers deliver the claim in several
// shapes: a list, a single string, a JSON-encoded string, or nothing at all.
// This is the only place that ambiguity is resolved; every caller goes
// through it.
func NormalizeGroups(claim any) []string {
	switch v := claim.(type) {
	case nil:
		return []string{}
	case []string:
		return trimAll(v)
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s := strings.TrimSpace(stringify(e)); s != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return []string{}
		}
		var parsed any
		if err := json.Unmarshal([]byte(s), &parsed); err == nil {
			switch parsed.(type) {
			case []any:
				return NormalizeGroups(parsed)
			case nil:
				return []string{}
			default:
				// JSON scalar: wrap as a single group name.
				if p := strings.TrimSpace(stringify(parsed)); p != "" {
					return []string{p}
				}
				return []string{}
			}
		}
		// Not JSON: the whole trimmed string is one group name.
		return []string{s}
	default:
		if s := strings.TrimSpace(stringify(v)); s != "" {
			return []string{s}
		}
		return []string{}
	}
}

func trimAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, e := range in {
		if s := strings.TrimSpace(e); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func stringify(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case float64:
		// JSON numbers decode as float64; render integers without decimals.
		if s == float64(int64(s)) {
			return fmt.Sprintf("%d", int64(s))
		}
		return fmt.Sprintf("%v", s)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// groupTiers maps lower-cased group names onto roles in descending privilege
// order. The first matching tier wins.
var groupTiers = []struct {
	name string
	role models.Role
}{
	{"admin", models.RoleAdmin},
	{"approver", models.RoleApprover},
	{"contributor", models.RoleContributor},
	{"viewer", models.RoleViewer},
}

// RoleFromGroups derives the caller's role from normalized group names.
// Membership is case-insensitive; a caller in multiple groups gets the
// highest-privilege tier present. No match yields Viewer as the fail-closed
// default.
func RoleFromGroups(groups []string) models.Role {
	lowered := make(map[string]bool, len(groups))
	for _, g := range groups {
		lowered[strings.ToLower(g)] = true
	}
	for _, tier := range groupTiers {
		if lowered[tier.name] {
			return tier.role
		}
	}
	return models.RoleViewer
}

// groupClaimKeys are the claim names a group membership may arrive under.
var groupClaimKeys = []string{"cognito:groups", "groups", "cognito_groups"}

// GroupsFromClaims extracts and normalizes the group claim from a token
// payload, checking each known claim key in order.
func GroupsFromClaims(claims map[string]any) []string {
	for _, key := range groupClaimKeys {
		if v, ok := claims[key]; ok && v != nil {
			return NormalizeGroups(v)
		}
	}
	return []string{}
}
