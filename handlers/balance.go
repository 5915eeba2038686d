package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"papum-backend/balance"
	"papum-backend/models"
	"papum-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// GET /api/houses/:id/summary?strategy=percentage|equal
func (h *Handler) GetSummary(c *gin.Context) {
	house, user, ok := h.houseForMember(c)
	if !ok {
		return
	}

	strategy, err := balance.ParseStrategy(c.Query("strategy"))
	if err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	expenses, err := h.store.ListExpenses(c.Request.Context(), house.ID)
	if err != nil {
		h.storeError(c, err, "House not found")
		return
	}

	summary, err := h.buildSummary(c.Request.Context(), house, user, strategy, expenses)
	if err != nil {
		h.storeError(c, err, "House not found")
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "", summary)
}

// GET /api/houses/:id/tip
func (h *Handler) GetTip(c *gin.Context) {
	house, _, ok := h.houseForMember(c)
	if !ok {
		return
	}

	expenses, err := h.store.ListExpenses(c.Request.Context(), house.ID)
	if err != nil {
		h.storeError(c, err, "House not found")
		return
	}

	if month := c.Query("month"); month != "" {
		m, err := time.Parse(monthLayout, month)
		if err != nil {
			utils.BadRequest(c, "Invalid month, expected YYYY-MM")
			return
		}
		expenses = inMonth(expenses, m)
	}

	categories := balance.SpendingByCategory(expenses)
	tip, fallback := h.advisor.Tip(c.Request.Context(), categories)

	utils.SuccessResponse(c, http.StatusOK, "", models.TipResponse{
		Tip:        tip,
		Categories: categories,
		Fallback:   fallback,
	})
}

// buildSummary runs the balance engine for the user over the whole expense list.
func (h *Handler) buildSummary(ctx context.Context, house *models.House, user *models.User, strategy balance.Strategy, expenses []models.Expense) (models.SummaryResponse, error) {
	member := memberOf(user, house)

	summary, err := balance.Compute(strategy, expenses, member)
	if err != nil {
		return models.SummaryResponse{}, err
	}

	partner := balance.ResolvePartnerName(expenses, member)
	partnerPix := ""
	if partner != balance.PartnerPlaceholder {
		members, err := h.store.ListHouseMembers(ctx, house.ID)
		if err != nil {
			return models.SummaryResponse{}, err
		}
		for _, m := range members {
			if m.ID != user.ID && m.Name == partner {
				partnerPix = m.Pix
				break
			}
		}
	}

	// Shortcuts only apply to a member who owes
	settleHalf, settleAll := decimal.Zero, decimal.Zero
	if summary.Status() == models.BalanceOwes {
		settleHalf = balance.SettleHalf(summary.Balance)
		settleAll = balance.SettleAll(summary.Balance)
	}

	return models.SummaryResponse{
		HouseID:                house.ID,
		Strategy:               string(strategy),
		TotalGroupSpend:        utils.RoundCents(summary.TotalGroupSpend),
		MyTotalPaid:            utils.RoundCents(summary.MyTotalPaid),
		MyRequiredContribution: utils.RoundCents(summary.MyRequiredContribution),
		Balance:                utils.RoundCents(summary.Balance),
		Status:                 summary.Status(),
		PartnerName:            partner,
		PartnerPix:             partnerPix,
		BaseShare:              balance.BaseShare(member),
		PartnerShare:           balance.PartnerShare(member),
		SettleHalf:             settleHalf,
		SettleAll:              settleAll,
		ExpenseCount:           len(expenses),
	}, nil
}

// settlementMessage maps settlement validation errors to client messages.
func settlementMessage(err error) string {
	switch {
	case errors.Is(err, balance.ErrNothingOwed):
		return "You do not owe anything right now"
	case errors.Is(err, balance.ErrNonPositiveAmount):
		return "Amount must be greater than zero"
	case errors.Is(err, balance.ErrAmountExceedsBalance):
		return "Amount is higher than what you owe"
	}
	return err.Error()
}
