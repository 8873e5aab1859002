// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package models

import "time"

// ResolutionMethod records how a timezone was chosen when resolving a
// requested time into an instant.
type ResolutionMethod string

const (
	ResolutionExplicitInText  ResolutionMethod = "explicit_in_text"
	ResolutionUserDefault     ResolutionMethod = "user_default"
	ResolutionProviderSetting ResolutionMethod = "provider_setting"
	ResolutionSystemFallback  ResolutionMethod = "system_fallback"
)

// ResolvedTime pairs a wall-clock instant with the IANA timezone used to
// resolve it and the method that picked that zone. The zone is metadata:
// identity is the absolute instant only.
type ResolvedTime struct {
	Instant time.Time        `json:"instant"`
	Zone    string           `json:"zone"`
	Method  ResolutionMethod `json:"method"`
}

// Equal reports whether two resolved times denote the same absolute
// instant, regardless of the zones they were resolved in.
func (r ResolvedTime) Equal(other ResolvedTime) bool {
	return r.Instant.Equal(other.Instant)
}

// Local returns the instant expressed in the resolution zone. If the zone
// fails to load, the instant is returned unchanged.
func (r ResolvedTime) Local() time.Time {
	loc, err := time.LoadLocation(r.Zone)
	if err != nil {
		return r.Instant
	}
	return r.Instant.In(loc)
}
