package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"papum-backend/balance"
	"papum-backend/database"
	"papum-backend/models"
	"papum-backend/realtime"
	"papum-backend/services"
	"papum-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

const maxIdempotencyKeyLength = 100

// POST /api/houses/:id/settle
//
// A repeated Idempotency-Key returns the settlement stored by the first
// request with 200 instead of recording a second payment.
func (h *Handler) Settle(c *gin.Context) {
	ctx := c.Request.Context()
	house, user, ok := h.houseForMember(c)
	if !ok {
		return
	}

	key := strings.TrimSpace(c.GetHeader(models.IdempotencyHeader))
	if len(key) > maxIdempotencyKeyLength {
		utils.BadRequest(c, fmt.Sprintf("%s must be at most %d characters", models.IdempotencyHeader, maxIdempotencyKeyLength))
		return
	}
	if key != "" {
		if h.replaySettlement(c, house, user, key) {
			return
		}
	}

	var req models.SettleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}
	amount, err := req.Amount.Decimal()
	if err != nil {
		utils.BadRequest(c, settlementMessage(balance.ErrNonPositiveAmount))
		return
	}

	strategy, err := balance.ParseStrategy(c.Query("strategy"))
	if err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	// Validation and insert happen under the store's per-house lock, so
	// concurrent settles cannot all pass against the same balance.
	member := memberOf(user, house)
	var (
		settlement models.Expense
		after      balance.Summary
	)
	err = h.store.RecordSettlement(ctx, house.ID, func(expenses []models.Expense) (*models.Expense, error) {
		current, err := balance.Compute(strategy, expenses, member)
		if err != nil {
			return nil, err
		}
		if err := balance.ValidateSettlementAmount(amount, current.Balance); err != nil {
			return nil, err
		}

		settlement = balance.BuildSettlement(member, amount)
		settlement.HouseID = house.ID
		settlement.CreatedBy = user.ID
		if key != "" {
			settlement.IdempotencyKey = &key
		}

		after, err = balance.Compute(strategy, append(expenses, settlement), member)
		if err != nil {
			return nil, err
		}
		return &settlement, nil
	})
	switch {
	case isSettlementRule(err):
		utils.ErrorResponse(c, http.StatusUnprocessableEntity, settlementMessage(err))
		return
	case err != nil:
		// A concurrent retry with the same key won the insert
		if key != "" && errors.Is(err, database.ErrDuplicate) && h.replaySettlement(c, house, user, key) {
			return
		}
		h.storeError(c, err, "House not found")
		return
	}

	h.logActivity(ctx, house.ID, user, models.ActivitySettlement, settlement.ID,
		fmt.Sprintf("%s acertou R$ %s", user.Name, settlement.Value.StringFixed(2)))
	h.publish(ctx, house.ID, realtime.KindExpensesChanged)

	notifyHouse, actor := *house, *user
	h.notifyAsync(func(ns *services.NotificationService) { ns.NotifySettlement(notifyHouse, settlement, actor) })

	utils.SuccessResponse(c, http.StatusCreated, "Settlement recorded", models.SettlementResponse{
		Settlement: settlement,
		Balance:    utils.RoundCents(after.Balance),
	})
}

// isSettlementRule reports whether err is a rejected settlement amount.
func isSettlementRule(err error) bool {
	return errors.Is(err, balance.ErrNothingOwed) ||
		errors.Is(err, balance.ErrNonPositiveAmount) ||
		errors.Is(err, balance.ErrAmountExceedsBalance)
}

// replaySettlement answers with the settlement already stored under key.
// It reports false when nothing is stored yet and the request should proceed.
func (h *Handler) replaySettlement(c *gin.Context, house *models.House, user *models.User, key string) bool {
	ctx := c.Request.Context()

	existing, err := h.store.GetExpenseByIdempotencyKey(ctx, house.ID, key)
	switch {
	case errors.Is(err, database.ErrNotFound):
		return false
	case err != nil:
		h.storeError(c, err, "")
		return true
	case existing.CreatedBy != user.ID || !existing.IsSettlement():
		utils.Conflict(c, models.IdempotencyHeader+" was already used")
		return true
	}

	strategy, err := balance.ParseStrategy(c.Query("strategy"))
	if err != nil {
		strategy = balance.StrategyPercentage
	}
	expenses, err := h.store.ListExpenses(ctx, house.ID)
	if err != nil {
		h.storeError(c, err, "House not found")
		return true
	}
	current, err := balance.Compute(strategy, expenses, memberOf(user, house))
	if err != nil {
		h.storeError(c, err, "")
		return true
	}

	h.log.Info("Settlement replayed", "house_id", house.ID, "expense_id", existing.ID)
	utils.SuccessResponse(c, http.StatusOK, "Settlement already recorded", models.SettlementResponse{
		Settlement: *existing,
		Balance:    utils.RoundCents(current.Balance),
		Replayed:   true,
	})
	return true
}

// GET /api/houses/:id/settlements
func (h *Handler) GetHouseSettlements(c *gin.Context) {
	house, _, ok := h.houseForMember(c)
	if !ok {
		return
	}

	var pagination utils.PaginationQuery
	if err := c.ShouldBindQuery(&pagination); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	expenses, err := h.store.ListExpenses(c.Request.Context(), house.ID)
	if err != nil {
		h.storeError(c, err, "House not found")
		return
	}

	settlements := make([]models.Expense, 0)
	total := decimal.Zero
	for _, e := range expenses {
		if e.IsSettlement() {
			settlements = append(settlements, e)
			total = total.Add(e.Value)
		}
	}

	utils.SuccessResponse(c, http.StatusOK, "", gin.H{
		"total":       total,
		"settlements": utils.Paginate(settlements, pagination),
	})
}
