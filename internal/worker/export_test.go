package worker

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/clipforge/pipeline/internal/models"
)

func TestEntitlementMatrix(t *testing.T) {
	cases := []struct {
		name       string
		quality    models.QualityTier
		credits    int
		subscribed bool
		charged    bool
		allowed    bool
	}{
		{"preview is always free", models.QualityPreview, 0, false, false, true},
		{"standard with credits", models.QualityStandard, 1, false, true, true},
		{"standard without credits", models.QualityStandard, 0, false, true, false},
		{"premium with credits", models.QualityPremium, 2, false, true, true},
		{"premium short one credit", models.QualityPremium, 1, false, true, false},
		{"subscriber pays nothing", models.QualityPremium, 0, true, false, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			user := models.User{Credits: tc.credits, SubscriptionStatus: "inactive"}
			if tc.subscribed {
				user.SubscriptionStatus = "active"
			}

			cost := tc.quality.ExportCredits()
			payWithCredits := cost > 0 && !user.HasActiveSubscription()
			allowed := !payWithCredits || user.Credits >= cost

			assert.Equal(t, tc.charged, payWithCredits)
			assert.Equal(t, tc.allowed, allowed)
		})
	}
}
