package models

// Stats summarizes the case population for reviewers.
type Stats struct {
	Total            int            `json:"total"`
	ByStatus         map[Status]int `json:"by_status"`
	AutoApproved     int            `json:"auto_approved"`
	ManuallyApproved int            `json:"manually_approved"`
	AverageRisk      float64        `json:"average_risk"`
}

// ComputeStats aggregates cases. AverageRisk covers only scored cases.
func ComputeStats(cases []*Case) Stats {
	st := Stats{ByStatus: map[Status]int{}}
	var riskSum float64
	var scored int
	for _, c := range cases {
		st.Total++
		st.ByStatus[c.Status]++
		if c.Status == StatusVerified {
			if c.ApprovedBy == ActorSystem {
				st.AutoApproved++
			} else {
				st.ManuallyApproved++
			}
		}
		if c.Risk != nil {
			riskSum += c.Risk.Probability
			scored++
		}
	}
	if scored > 0 {
		st.AverageRisk = riskSum / float64(scored)
	}
	return st
}
