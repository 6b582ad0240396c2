package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/digkill/ContentPlanner/internal/apperr"
	"github.com/digkill/ContentPlanner/internal/config"
	"github.com/digkill/ContentPlanner/internal/models"
)

func TestPlanService(t *testing.T) {
	plans := NewPlanService(config.Config{
		BankAccountName: "Content Calendar Lite",
		BankAccountNo:   "1234567890",
		BankName:        "Example Bank",
		BankSwiftCode:   "EXBLUS33",
	})

	t.Run("should list the catalogue with formatted prices", func(t *testing.T) {
		offers := plans.List()
		require.Len(t, offers, 3)
		assert.Equal(t, models.PlanFree, offers[0].Plan)
		assert.Equal(t, "0.00", offers[0].Price)
		assert.Equal(t, "19.00", offers[1].Price)
		assert.Equal(t, "49.00", offers[2].Price)
		for _, offer := range offers {
			assert.Equal(t, "USD", offer.Currency)
		}
	})

	t.Run("should reject unknown plans", func(t *testing.T) {
		_, err := plans.Offer("enterprise")
		assert.True(t, apperr.Is(err, apperr.Validation))
	})

	t.Run("should expose bank details", func(t *testing.T) {
		bank := plans.BankDetails()
		assert.Equal(t, "EXBLUS33", bank.SwiftCode)
		assert.Equal(t, "1234567890", bank.AccountNumber)
	})
}

func TestFormatMinorUnits(t *testing.T) {
	assert.Equal(t, "19.00", formatMinorUnits(1900))
	assert.Equal(t, "0.99", formatMinorUnits(99))
	assert.Equal(t, "1234.50", formatMinorUnits(123450))
}
