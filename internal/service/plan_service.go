package service

import (
	"fmt"

	"github.com/digkill/ContentPlanner/internal/apperr"
	"github.com/digkill/ContentPlanner/internal/config"
	"github.com/digkill/ContentPlanner/internal/models"
)

const planCurrency = "USD"

var planCatalogue = []models.PlanOffer{
	{Plan: models.PlanFree, Title: "Free", PriceMinorUnits: 0},
	{Plan: models.PlanPro, Title: "Pro", PriceMinorUnits: 1900},
	{Plan: models.PlanBusiness, Title: "Business", PriceMinorUnits: 4900},
}

// PlanService serves the fixed pricing catalogue and the bank-transfer details.
type PlanService struct {
	bank models.BankDetails
}

func NewPlanService(cfg config.Config) *PlanService {
	return &PlanService{
		bank: models.BankDetails{
			AccountName:   cfg.BankAccountName,
			AccountNumber: cfg.BankAccountNo,
			BankName:      cfg.BankName,
			SwiftCode:     cfg.BankSwiftCode,
		},
	}
}

func (s *PlanService) List() []models.PlanOffer {
	offers := make([]models.PlanOffer, 0, len(planCatalogue))
	for _, offer := range planCatalogue {
		offers = append(offers, priced(offer))
	}
	return offers
}

// Offer returns the catalogue entry for plan.
func (s *PlanService) Offer(plan models.Plan) (models.PlanOffer, error) {
	for _, offer := range planCatalogue {
		if offer.Plan == plan {
			return priced(offer), nil
		}
	}
	return models.PlanOffer{}, apperr.Newf(apperr.Validation, "unknown plan %q", plan)
}

func (s *PlanService) BankDetails() models.BankDetails {
	return s.bank
}

func priced(offer models.PlanOffer) models.PlanOffer {
	offer.Currency = planCurrency
	offer.Price = formatMinorUnits(offer.PriceMinorUnits)
	return offer
}

func formatMinorUnits(v int) string {
	return fmt.Sprintf("%.2f", float64(v)/100)
}
