package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/poolhall-manager/internal/billing"
)

// TariffHandler exposes the pricing configuration the service runs with.
type TariffHandler struct {
	Billing *billing.Service
}

func NewTariffHandler(svc *billing.Service) *TariffHandler { return &TariffHandler{Billing: svc} }

type tariffResp struct {
	Policy            string  `json:"policy"`
	BaseRate          string  `json:"base_rate"`
	ReducedRate       string  `json:"reduced_rate"`
	ThresholdPrice    string  `json:"threshold_price"`
	OffsetMinutes     float64 `json:"offset_minutes"`
	CutoffMinutes     float64 `json:"cutoff_minutes"`
	FloorPrice        string  `json:"floor_price"`
	PlateauPrice      string  `json:"plateau_price"`
	PlateauUpperBound string  `json:"plateau_upper_bound"`
	MinimumMinutes    float64 `json:"minimum_minutes"`
}

func (h *TariffHandler) Get(c echo.Context) error {
	t := h.Billing.Tariff()
	return c.JSON(http.StatusOK, tariffResp{
		Policy:            string(t.Policy),
		BaseRate:          t.BaseRate.String(),
		ReducedRate:       t.ReducedRate.String(),
		ThresholdPrice:    t.ThresholdPrice.String(),
		OffsetMinutes:     t.OffsetMinutes,
		CutoffMinutes:     t.CutoffMinutes,
		FloorPrice:        t.FloorPrice.String(),
		PlateauPrice:      t.PlateauPrice.String(),
		PlateauUpperBound: t.PlateauUpperBound.String(),
		MinimumMinutes:    t.MinimumMinutes,
	})
}
