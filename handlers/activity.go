package handlers

import (
	"net/http"

	"papum-backend/models"
	"papum-backend/utils"

	"github.com/gin-gonic/gin"
)

// GET /api/houses/:id/activity
func (h *Handler) GetHouseActivity(c *gin.Context) {
	house, _, ok := h.houseForMember(c)
	if !ok {
		return
	}

	var pagination utils.PaginationQuery
	if err := c.ShouldBindQuery(&pagination); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}
	pagination.Normalize()

	activities, err := h.store.ListActivity(c.Request.Context(), house.ID, pagination.Offset(), pagination.Limit)
	if err != nil {
		h.storeError(c, err, "House not found")
		return
	}
	if activities == nil {
		activities = []models.Activity{}
	}

	utils.SuccessResponse(c, http.StatusOK, "", activities)
}
