package handler

import (
	"errors"
	"strconv"

	"github.com/bitfantasy/nimo-mes/internal/mes/repository"
	"github.com/bitfantasy/nimo-mes/internal/mes/service"
	"github.com/gin-gonic/gin"
)

// Handlers MES处理器集合
type Handlers struct {
	Order      *OrderHandler
	Production *ProductionHandler
	Partner    *PartnerHandler
	Template   *TemplateHandler
	Inspection *InspectionHandler
	Report     *ReportHandler
	Activity   *ActivityHandler
	SSE        *SSEHandler
}

// NewHandlers 创建MES处理器集合
func NewHandlers(services *service.Services, activityLogRepo *repository.ActivityLogRepository) *Handlers {
	return &Handlers{
		Order:      NewOrderHandler(services.Order),
		Production: NewProductionHandler(services.Production),
		Partner:    NewPartnerHandler(services.Partner),
		Template:   NewTemplateHandler(services.Template),
		Inspection: NewInspectionHandler(services.Inspection),
		Report:     NewReportHandler(services.Report),
		Activity:   NewActivityHandler(activityLogRepo),
		SSE:        NewSSEHandler(),
	}
}

// === 响应辅助函数 ===

type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

type ListResponse struct {
	Items      interface{} `json:"items"`
	Pagination *Pagination `json:"pagination"`
}

type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(200, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

func Created(c *gin.Context, data interface{}) {
	c.JSON(201, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

func Error(c *gin.Context, code int, message string) {
	statusCode := code / 100
	if statusCode < 100 || statusCode > 599 {
		statusCode = 500
	}
	c.JSON(statusCode, Response{
		Code:    code,
		Message: message,
	})
}

func BadRequest(c *gin.Context, message string) {
	Error(c, 40000, message)
}

func NotFound(c *gin.Context, message string) {
	Error(c, 40400, message)
}

func Forbidden(c *gin.Context, message string) {
	Error(c, 40300, message)
}

func InternalError(c *gin.Context, message string) {
	Error(c, 50000, message)
}

// HandleError 按错误类型映射响应：
// 未找到→404，非法流转→409，前置条件不满足→412，其余→500
func HandleError(c *gin.Context, err error, fallback string) {
	var invalidTransition *service.InvalidTransitionError
	var precondition *service.PreconditionError
	switch {
	case errors.Is(err, repository.ErrNotFound):
		NotFound(c, "记录不存在")
	case errors.As(err, &invalidTransition):
		Error(c, 40900, err.Error())
	case errors.As(err, &precondition):
		Error(c, 41200, err.Error())
	default:
		InternalError(c, fallback+": "+err.Error())
	}
}

func GetUserID(c *gin.Context) string {
	userID, _ := c.Get("user_id")
	if id, ok := userID.(string); ok {
		return id
	}
	return ""
}

func GetPagination(c *gin.Context) (page, pageSize int) {
	page = 1
	pageSize = 20

	if p := c.Query("page"); p != "" {
		if v, err := strconv.Atoi(p); err == nil && v > 0 {
			page = v
		}
	}

	if ps := c.Query("page_size"); ps != "" {
		if v, err := strconv.Atoi(ps); err == nil && v > 0 && v <= 100 {
			pageSize = v
		}
	}

	return page, pageSize
}

func listResponse(items interface{}, page, pageSize int, total int64) ListResponse {
	totalPages := int(total) / pageSize
	if int(total)%pageSize > 0 {
		totalPages++
	}
	return ListResponse{
		Items: items,
		Pagination: &Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      int(total),
			TotalPages: totalPages,
		},
	}
}
