package gap

import (
	"sort"
	"time"

	"github.com/spigell/skills-gap/internal/workforce"
)

// CertificateAlert is a certification expiring inside the alert window.
type CertificateAlert struct {
	CandidateID   string                  `json:"candidate_id" yaml:"candidate_id"`
	CandidateName string                  `json:"candidate_name" yaml:"candidate_name"`
	Certification workforce.Certification `json:"certification" yaml:"certification"`
	DaysLeft      int                     `json:"days_left" yaml:"days_left"`
}

// ExpiringCertificates lists certifications with 0 <= days left <= window,
// soonest first.
func ExpiringCertificates(candidates []workforce.Candidate, window int, now time.Time) []CertificateAlert {
	today := truncateDay(now)
	var alerts []CertificateAlert
	for _, c := range candidates {
		for _, cert := range c.Certifications {
			days := DaysUntil(today, cert.ExpiresAt)
			if days < 0 || days > window {
				continue
			}
			alerts = append(alerts, CertificateAlert{
				CandidateID:   c.ID,
				CandidateName: c.Name,
				Certification: cert,
				DaysLeft:      days,
			})
		}
	}

	sort.SliceStable(alerts, func(i, j int) bool {
		return alerts[i].DaysLeft < alerts[j].DaysLeft
	})

	return alerts
}
