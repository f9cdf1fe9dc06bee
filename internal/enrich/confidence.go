package enrich

import "strings"

// Generic mailbox prefixes that lower confidence in a crawl find.
var genericPrefixes = map[string]struct{}{
	"info": {}, "hello": {}, "contact": {}, "hi": {},
	"support": {}, "team": {}, "careers": {}, "jobs": {},
}

// AssessConfidence grades a finished email set. Verified addresses rank
// high, Apollo matches rank high, person-shaped on-page addresses rank
// medium, everything else low.
func AssessConfidence(set *CompanyEmailSet) string {
	if set == nil || set.Len() == 0 {
		return "low"
	}
	for _, rec := range set.Records("") {
		if rec.Verified {
			return "high"
		}
	}
	for _, rec := range set.Records("") {
		if containsString(rec.Sources, "apollo") {
			return "high"
		}
	}
	for _, rec := range set.Records("") {
		if !containsString(rec.Sources, "crawl") {
			continue
		}
		local := strings.ToLower(rec.Address)
		if at := strings.Index(local, "@"); at > 0 {
			local = local[:at]
		}
		if looksPersonal(local) {
			return "medium"
		}
		if _, generic := genericPrefixes[local]; !generic {
			return "medium"
		}
	}
	return "low"
}

// looksPersonal matches firstname.lastname style local parts.
func looksPersonal(local string) bool {
	if !strings.Contains(local, ".") {
		return false
	}
	for _, part := range strings.Split(local, ".") {
		if part == "" {
			return false
		}
	}
	return true
}
