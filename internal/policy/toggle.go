package policy

import "scribeflow/internal/domain"

// Defaults supplies configured diarization defaults, keyed by content type
// and optionally by content type + subcategory.
type Defaults struct {
	ByType        map[domain.ContentType]bool
	BySubcategory map[string]bool
}

// DefaultsFromSettings adapts the persisted settings maps.
func DefaultsFromSettings(s domain.Settings) Defaults {
	return Defaults{
		ByType:        s.DiarizeByType,
		BySubcategory: s.DiarizeBySubcategory,
	}
}

// ShouldDiarize decides whether the diarization stage runs for a job.
// Resolution order, first match wins: explicit override, subcategory-level
// default, type-level default, then false. Diarization is the expensive
// optional stage, so an unconfigured classification does not run it.
//
// The result is computed once at pipeline start and cached on the Job;
// configuration changes never alter an in-flight job.
func ShouldDiarize(ct domain.ContentType, sub string, override *bool, d Defaults) bool {
	if override != nil {
		return *override
	}
	if sub != "" {
		if v, ok := d.BySubcategory[domain.SubcategoryKey(ct, sub)]; ok {
			return v
		}
	}
	if v, ok := d.ByType[ct]; ok {
		return v
	}
	return false
}
