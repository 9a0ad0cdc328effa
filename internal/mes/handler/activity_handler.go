package handler

import (
	"github.com/bitfantasy/nimo-mes/internal/mes/repository"
	"github.com/gin-gonic/gin"
)

// ActivityHandler 操作日志处理器，直接读仓库
type ActivityHandler struct {
	repo *repository.ActivityLogRepository
}

func NewActivityHandler(repo *repository.ActivityLogRepository) *ActivityHandler {
	return &ActivityHandler{repo: repo}
}

// ListActivities 查询实体的操作日志
// GET /api/v1/mes/activities?entity_type=order&entity_id=xxx
func (h *ActivityHandler) ListActivities(c *gin.Context) {
	entityType := c.Query("entity_type")
	entityID := c.Query("entity_id")
	if entityType == "" || entityID == "" {
		BadRequest(c, "entity_type 和 entity_id 必填")
		return
	}

	page, pageSize := GetPagination(c)
	items, total, err := h.repo.FindByEntity(c.Request.Context(), entityType, entityID, page, pageSize)
	if err != nil {
		InternalError(c, "获取操作日志失败: "+err.Error())
		return
	}
	Success(c, listResponse(items, page, pageSize, total))
}
