package service

import (
	"fmt"

	"onekyc/internal/kyc/models"
)

// AutoApproveBelow is the risk probability under which a case is verified
// without a reviewer.
const AutoApproveBelow = 0.30

// resolution is the routing decision for a processed case.
type resolution struct {
	status  models.Status
	comment string
}

// resolve routes a processed case. A duplicate always goes to review, as does
// a case whose duplicate check could not run; otherwise the risk probability
// decides. It is a pure function of its inputs.
func resolve(dup models.DuplicateMatch, duplicateChecked bool, probability float64) resolution {
	switch {
	case dup.IsDuplicate:
		return resolution{
			status: models.StatusInReview,
			comment: fmt.Sprintf("Possible duplicate of verified identity %s (similarity: %.2f%%)",
				dup.MatchedUKN, dup.Similarity*100),
		}
	case !duplicateChecked:
		return resolution{
			status:  models.StatusInReview,
			comment: "Duplicate check unavailable, manual review required",
		}
	case probability < AutoApproveBelow:
		return resolution{status: models.StatusVerified}
	default:
		return resolution{
			status:  models.StatusInReview,
			comment: fmt.Sprintf("Risk probability %.4f requires manual review", probability),
		}
	}
}
