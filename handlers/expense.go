package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"papum-backend/models"
	"papum-backend/realtime"
	"papum-backend/services"
	"papum-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const monthLayout = "2006-01"

var errPaymentCategory = errors.New("payments are recorded through the settle endpoint")

// POST /api/houses/:id/expenses
func (h *Handler) CreateExpense(c *gin.Context) {
	ctx := c.Request.Context()
	house, user, ok := h.houseForMember(c)
	if !ok {
		return
	}

	var req models.CreateExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	value, err := req.Value.Decimal()
	if err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	expenseDate := models.Today()
	if req.Date != "" {
		if expenseDate, err = models.ParseDate(req.Date); err != nil {
			utils.BadRequest(c, "Invalid date, expected YYYY-MM-DD")
			return
		}
	}

	category, err := parseSpendCategory(req.Category)
	if err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	if err := models.ValidatePercentage(req.SharePercentage); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	paidBy, ok := h.resolvePayer(c, house.ID, req.PaidBy, user)
	if !ok {
		return
	}

	expense := models.Expense{
		HouseID:         house.ID,
		Name:            strings.TrimSpace(req.Name),
		Date:            expenseDate,
		Value:           value,
		Category:        category,
		PaidBy:          paidBy,
		SharePercentage: req.SharePercentage,
		CreatedBy:       user.ID,
	}

	if err := h.store.CreateExpense(ctx, &expense); err != nil {
		h.storeError(c, err, "House not found")
		return
	}

	h.logActivity(ctx, house.ID, user, models.ActivityExpenseAdded, expense.ID,
		fmt.Sprintf("%s adicionou \"%s\" (R$ %s)", user.Name, expense.Name, expense.Value.StringFixed(2)))
	h.publish(ctx, house.ID, realtime.KindExpensesChanged)

	notifyHouse, actor := *house, *user
	h.notifyAsync(func(ns *services.NotificationService) { ns.NotifyExpenseAdded(notifyHouse, expense, actor) })

	utils.SuccessResponse(c, http.StatusCreated, "Expense added", expense)
}

// resolvePayer maps paid_by onto the exact name of a house member. An empty
// value means the caller paid.
func (h *Handler) resolvePayer(c *gin.Context, houseID uuid.UUID, paidBy string, caller *models.User) (string, bool) {
	paidBy = strings.TrimSpace(paidBy)
	if paidBy == "" {
		return caller.Name, true
	}
	member, err := h.memberNamed(c.Request.Context(), houseID, paidBy)
	if err != nil {
		h.storeError(c, err, "House not found")
		return "", false
	}
	if member == nil {
		utils.BadRequest(c, "paid_by must be the name of a house member")
		return "", false
	}
	return member.Name, true
}

// GET /api/houses/:id/expenses
func (h *Handler) GetHouseExpenses(c *gin.Context) {
	house, _, ok := h.houseForMember(c)
	if !ok {
		return
	}

	var query models.ExpenseListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	expenses, err := h.store.ListExpenses(c.Request.Context(), house.ID)
	if err != nil {
		h.storeError(c, err, "House not found")
		return
	}

	if query.Month != "" {
		month, err := time.Parse(monthLayout, query.Month)
		if err != nil {
			utils.BadRequest(c, "Invalid month, expected YYYY-MM")
			return
		}
		expenses = inMonth(expenses, month)
	}

	page := utils.Paginate(expenses, utils.PaginationQuery{Page: query.Page, Limit: query.Limit})
	utils.SuccessResponse(c, http.StatusOK, "", page)
}

// GET /api/expenses/:id
func (h *Handler) GetExpense(c *gin.Context) {
	expense, _, ok := h.expenseForMember(c)
	if !ok {
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "", expense)
}

// PUT /api/expenses/:id
func (h *Handler) UpdateExpense(c *gin.Context) {
	ctx := c.Request.Context()
	expense, user, ok := h.expenseForMember(c)
	if !ok {
		return
	}
	if expense.IsSettlement() {
		utils.BadRequest(c, "Settlements cannot be edited, delete it and settle again")
		return
	}

	var req models.UpdateExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			utils.BadRequest(c, "Name cannot be empty")
			return
		}
		expense.Name = name
	}
	if req.Value != nil {
		value, err := req.Value.Decimal()
		if err != nil {
			utils.BadRequest(c, err.Error())
			return
		}
		expense.Value = value
	}
	if req.Date != nil {
		date, err := models.ParseDate(*req.Date)
		if err != nil {
			utils.BadRequest(c, "Invalid date, expected YYYY-MM-DD")
			return
		}
		expense.Date = date
	}
	if req.Category != nil {
		category, err := parseSpendCategory(*req.Category)
		if err != nil {
			utils.BadRequest(c, err.Error())
			return
		}
		expense.Category = category
	}
	if req.PaidBy != nil {
		if strings.TrimSpace(*req.PaidBy) == "" {
			utils.BadRequest(c, "paid_by cannot be empty")
			return
		}
		paidBy, ok := h.resolvePayer(c, expense.HouseID, *req.PaidBy, user)
		if !ok {
			return
		}
		expense.PaidBy = paidBy
	}
	if err := models.ValidatePercentage(req.SharePercentage); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}
	switch {
	case req.ClearSharePercentage:
		expense.SharePercentage = nil
	case req.SharePercentage != nil:
		share := *req.SharePercentage
		expense.SharePercentage = &share
	}

	if err := h.store.UpdateExpense(ctx, expense); err != nil {
		h.storeError(c, err, "Expense not found")
		return
	}

	h.logActivity(ctx, expense.HouseID, user, models.ActivityExpenseUpdated, expense.ID,
		fmt.Sprintf("%s editou \"%s\"", user.Name, expense.Name))
	h.publish(ctx, expense.HouseID, realtime.KindExpensesChanged)

	utils.SuccessResponse(c, http.StatusOK, "Expense updated", expense)
}

// DELETE /api/expenses/:id
func (h *Handler) DeleteExpense(c *gin.Context) {
	ctx := c.Request.Context()
	expense, user, ok := h.expenseForMember(c)
	if !ok {
		return
	}

	if err := h.store.DeleteExpense(ctx, expense.ID); err != nil {
		h.storeError(c, err, "Expense not found")
		return
	}

	h.logActivity(ctx, expense.HouseID, user, models.ActivityExpenseDeleted, expense.ID,
		fmt.Sprintf("%s excluiu \"%s\"", user.Name, expense.Name))
	h.publish(ctx, expense.HouseID, realtime.KindExpensesChanged)

	utils.SuccessResponse(c, http.StatusOK, "Expense deleted", nil)
}

// expenseForMember loads the :id expense and checks the caller lives in its house.
func (h *Handler) expenseForMember(c *gin.Context) (*models.Expense, *models.User, bool) {
	expenseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequest(c, "Invalid expense ID")
		return nil, nil, false
	}
	user, ok := h.currentUser(c)
	if !ok {
		return nil, nil, false
	}
	expense, err := h.store.GetExpense(c.Request.Context(), expenseID)
	if err != nil {
		h.storeError(c, err, "Expense not found")
		return nil, nil, false
	}
	if !user.InHouse(expense.HouseID) {
		utils.Forbidden(c, "You are not a member of this house")
		return nil, nil, false
	}
	return expense, user, true
}

// parseSpendCategory rejects Payment, which only the settle flow may create.
func parseSpendCategory(s string) (models.Category, error) {
	category, err := models.ParseCategory(s)
	if err != nil {
		return "", err
	}
	if category.IsPayment() {
		return "", errPaymentCategory
	}
	return category, nil
}

func inMonth(expenses []models.Expense, month time.Time) []models.Expense {
	out := make([]models.Expense, 0, len(expenses))
	for _, e := range expenses {
		if e.Date.SameMonth(month.Year(), month.Month()) {
			out = append(out, e)
		}
	}
	return out
}
