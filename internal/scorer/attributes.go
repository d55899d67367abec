package scorer

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/spiritlens/backend/internal/domain"
	"github.com/spiritlens/backend/internal/normalize"
)

// Package-level compiled regex patterns for attribute extraction
var (
	agePattern          = regexp.MustCompile(`\b(\d{1,2})\s*-?\s*(?:years?|yrs?|yo)\b`)
	proofPattern        = regexp.MustCompile(`\b(\d+(?:\.\d+)?)\s*(?:proof|pf)\b`)
	grainPattern        = regexp.MustCompile(`\b(rye|wheat|wheated|corn|barley)\b`)
	caskPattern         = regexp.MustCompile(`\b(sherry|port|madeira|rum|wine)\b`)
	vintagePattern      = regexp.MustCompile(`\b((?:19|20)\d{2})\b`)
	releasePattern      = regexp.MustCompile(`\b((?:19|20)\d{2})\s*release\b`)
	limitedPattern      = regexp.MustCompile(`\b(?:limited|special)\s*edition\b`)
	liqueurPattern      = regexp.MustCompile(`\b(?:liqueur|cream)\b`)
	caskStrengthPattern = regexp.MustCompile(`\b(?:cask\s*strength|barrel\s*proof)\b`)
	singleBarrelPattern = regexp.MustCompile(`\bsingle[\s-]*(?:barrel|cask)\b`)
)

// Fixed penalties for attribute flags and minor mismatches
const (
	caskPenalty         = 0.1
	vintagePenalty      = 0.2
	releasePenalty      = 0.05
	editionPenalty      = 0.05
	liqueurPenalty      = 0.5 // a cream liqueur must never merge with a straight spirit
	caskStrengthPenalty = 0.15
	singleBarrelPenalty = 0.1

	proofTolerance = 2.0  // proof points treated as the same bottling
	proofSpan      = 50.0 // proof difference that earns the full proof penalty
	ageSpan        = 10.0 // age difference that earns the full age penalty

	attributeBonus = 0.02
)

// ExtractAttributes reads the comparable facts of a record from its brand,
// name, ABV and explicit overrides.
func ExtractAttributes(r *domain.Record) domain.Attributes {
	full := normalize.Fold(strings.TrimSpace(r.Brand + " " + r.Name))
	var attrs domain.Attributes

	if r.Age > 0 {
		attrs.Age = r.Age
	} else if m := agePattern.FindStringSubmatch(full); m != nil {
		attrs.Age, _ = strconv.Atoi(m[1])
	}

	if m := proofPattern.FindStringSubmatch(full); m != nil {
		attrs.Proof, _ = strconv.ParseFloat(m[1], 64)
	} else if r.ABV > 0 {
		attrs.Proof = r.ABV * 2
	}

	if m := grainPattern.FindStringSubmatch(full); m != nil {
		attrs.Grain = m[1]
		if attrs.Grain == "wheated" {
			attrs.Grain = "wheat"
		}
	}
	if m := caskPattern.FindStringSubmatch(full); m != nil {
		attrs.Cask = m[1]
	}

	if m := releasePattern.FindStringSubmatch(full); m != nil {
		attrs.ReleaseYear, _ = strconv.Atoi(m[1])
	} else if m := vintagePattern.FindStringSubmatch(full); m != nil {
		attrs.Vintage, _ = strconv.Atoi(m[1])
	}

	attrs.LimitedEdition = limitedPattern.MatchString(full)
	attrs.Liqueur = r.IsLiqueur ||
		liqueurPattern.MatchString(full) ||
		liqueurPattern.MatchString(normalize.Fold(r.Type)) ||
		liqueurPattern.MatchString(normalize.Fold(r.Category))
	attrs.CaskStrength = caskStrengthPattern.MatchString(full)
	attrs.SingleBarrel = singleBarrelPattern.MatchString(full)

	return attrs
}

// Penalty scores attribute disagreement between two records in [0, 1]
func Penalty(a, b domain.Attributes, w PenaltyWeights) domain.PenaltyBreakdown {
	var p domain.PenaltyBreakdown

	if a.Age > 0 && b.Age > 0 && a.Age != b.Age {
		diff := math.Abs(float64(a.Age - b.Age))
		p.Age = w.Age * math.Min(1, diff/ageSpan)
	}
	if a.Proof > 0 && b.Proof > 0 {
		if diff := math.Abs(a.Proof - b.Proof); diff > proofTolerance {
			p.Proof = w.Proof * math.Min(1, diff/proofSpan)
		}
	}
	if a.Grain != "" && b.Grain != "" && a.Grain != b.Grain {
		p.Grain = w.GrainType
	}
	if a.Cask != "" && b.Cask != "" && a.Cask != b.Cask {
		p.Cask = caskPenalty
	}
	if a.Vintage > 0 && b.Vintage > 0 && a.Vintage != b.Vintage {
		p.Vintage = vintagePenalty
	}
	if a.ReleaseYear > 0 && b.ReleaseYear > 0 && a.ReleaseYear != b.ReleaseYear {
		p.Release = releasePenalty
	}
	if a.LimitedEdition != b.LimitedEdition {
		p.Edition = editionPenalty
	}
	if a.Liqueur != b.Liqueur {
		p.Liqueur = liqueurPenalty
	}
	if a.CaskStrength != b.CaskStrength {
		p.CaskStrength = caskStrengthPenalty
	}
	if a.SingleBarrel != b.SingleBarrel {
		p.SingleBarrel = singleBarrelPenalty
	}

	total := p.Age + p.Proof + p.Grain + p.Cask + p.Vintage + p.Release +
		p.Edition + p.Liqueur + p.CaskStrength + p.SingleBarrel
	p.Total = math.Min(1, total)
	return p
}

// Bonus rewards exact agreement on age and grain
func Bonus(a, b domain.Attributes) float64 {
	bonus := 0.0
	if a.Age > 0 && a.Age == b.Age {
		bonus += attributeBonus
	}
	if a.Grain != "" && a.Grain == b.Grain {
		bonus += attributeBonus
	}
	return bonus
}
