package ingest

import (
	"fmt"
	"sort"
	"strings"
)

// DetectionThreshold is the minimum weighted score for a vendor match.
const DetectionThreshold = 0.5

// Component weights: filename is the strongest signal vendors keep stable,
// sheet names and headers split the rest.
const (
	weightFileName = 0.4
	weightSheets   = 0.3
	weightHeaders  = 0.3
)

// DetectionInput is everything the detector may look at. It never opens
// the workbook itself; staging supplies the metadata.
type DetectionInput struct {
	FileName   string
	SheetNames []string
	Headers    []string
}

type Detection struct {
	Vendor     string
	Confidence float64
}

// DetectionError is fatal: an upload with no confident vendor match cannot
// be processed.
type DetectionError struct {
	Best      string
	BestScore float64
	FileName  string
}

func (e *DetectionError) Error() string {
	if e.Best == "" {
		return "vendor not detected"
	}
	return fmt.Sprintf("vendor not detected: best candidate %s scored %.2f (threshold %.2f)", e.Best, e.BestScore, DetectionThreshold)
}

func (e *DetectionError) Unwrap() error { return ErrVendorNotDetected }

// DetectVendor scores every registered vendor profile against the file's
// metadata and returns the winner at or above threshold. Ties are broken
// by profile priority, then vendor name, so detection is deterministic.
func DetectVendor(input DetectionInput) (Detection, error) {
	type scored struct {
		profile VendorProfile
		score   float64
	}

	candidates := make([]scored, 0, len(vendorProfiles))
	for _, profile := range vendorProfiles {
		candidates = append(candidates, scored{
			profile: profile,
			score:   scoreProfile(profile, input),
		})
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		if candidates[i].profile.Priority != candidates[j].profile.Priority {
			return candidates[i].profile.Priority < candidates[j].profile.Priority
		}
		return candidates[i].profile.Vendor < candidates[j].profile.Vendor
	})

	if len(candidates) == 0 || candidates[0].score < DetectionThreshold {
		detErr := &DetectionError{FileName: input.FileName}
		if len(candidates) > 0 {
			detErr.Best = candidates[0].profile.Vendor
			detErr.BestScore = candidates[0].score
		}
		return Detection{}, detErr
	}
	return Detection{
		Vendor:     candidates[0].profile.Vendor,
		Confidence: candidates[0].score,
	}, nil
}

func scoreProfile(profile VendorProfile, input DetectionInput) float64 {
	fileScore := keywordScore(profile.FileNameKeywords, []string{input.FileName})
	sheetScore := keywordScore(profile.SheetNameKeywords, input.SheetNames)
	headerScore := keywordScore(profile.HeaderKeywords, input.Headers)
	return weightFileName*fileScore + weightSheets*sheetScore + weightHeaders*headerScore
}

// keywordScore is the fraction of keywords found as case-insensitive
// substrings of any haystack, normalized to [0,1].
func keywordScore(keywords []string, haystacks []string) float64 {
	if len(keywords) == 0 {
		return 0
	}
	lowered := make([]string, len(haystacks))
	for i, h := range haystacks {
		lowered[i] = strings.ToLower(h)
	}
	matched := 0
	for _, keyword := range keywords {
		kw := strings.ToLower(keyword)
		for _, h := range lowered {
			if strings.Contains(h, kw) {
				matched++
				break
			}
		}
	}
	return float64(matched) / float64(len(keywords))
}
