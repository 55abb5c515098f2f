package handlers

import (
	"context"
	"log"
	"strconv"
	"time"

	"github.com/assetforge/code-allocator/app/dto"
	businessflow "github.com/assetforge/code-allocator/business_flow"
	"github.com/assetforge/code-allocator/utils"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

// AllocationHandlerInterface defines the contract for asset-code allocation endpoints
type AllocationHandlerInterface interface {
	ReserveCode(c fiber.Ctx) error
	ValidateCode(c fiber.Ctx) error
	ConfirmReservation(c fiber.Ctx) error
	Cleanup(c fiber.Ctx) error
}

// AllocationHandler handles asset-code reservation HTTP requests
type AllocationHandler struct {
	flow      businessflow.AllocationFlow
	validator *validator.Validate
}

// NewAllocationHandler creates a new allocation handler instance
func NewAllocationHandler(flow businessflow.AllocationFlow) AllocationHandlerInterface {
	return &AllocationHandler{
		flow:      flow,
		validator: validator.New(),
	}
}

func (h *AllocationHandler) ErrorResponse(c fiber.Ctx, status int, message, code string, details any) error {
	return c.Status(status).JSON(dto.APIResponse{Success: false, Message: message, Error: dto.ErrorDetail{Code: code, Details: details}})
}

func (h *AllocationHandler) SuccessResponse(c fiber.Ctx, status int, message string, data any) error {
	return c.Status(status).JSON(dto.APIResponse{Success: true, Message: message, Data: data})
}

// reserveCodeBody is the optional JSON body of the reserve endpoint.
type reserveCodeBody struct {
	RequestedBy *string `json:"requested_by,omitempty"`
	TTLSeconds  *int64  `json:"ttl_seconds,omitempty"`
}

// ReserveCode allocates the next asset code for a tenant and category
// @Summary Reserve Next Asset Code
// @Description Allocate the next sequence number for the tenant/category pair and reserve the formatted code
// @Tags Codes
// @Accept json
// @Produce json
// @Param tenantId path int true "Tenant ID"
// @Param category query int true "Asset category ID"
// @Param request body reserveCodeBody false "Optional reservation parameters"
// @Success 201 {object} dto.APIResponse{data=dto.ReserveCodeResponse}
// @Failure 400 {object} dto.APIResponse
// @Failure 404 {object} dto.APIResponse
// @Failure 503 {object} dto.APIResponse "Allocation lock contention"
// @Router /api/v1/tenants/{tenantId}/codes/next [post]
func (h *AllocationHandler) ReserveCode(c fiber.Ctx) error {
	tenantID, err := parseUintParam(c.Params("tenantId"))
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid tenant id", "INVALID_TENANT_ID", nil)
	}
	categoryID, err := parseUintParam(c.Query("category"))
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid or missing category id", "INVALID_CATEGORY_ID", nil)
	}

	var body reserveCodeBody
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&body); err != nil {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", nil)
		}
	}

	req := dto.ReserveCodeRequest{
		TenantID:    tenantID,
		CategoryID:  categoryID,
		RequestedBy: body.RequestedBy,
		TTLSeconds:  body.TTLSeconds,
	}
	if err := h.validator.Struct(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", h.validationDetails(err))
	}

	meta := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	resp, err := h.flow.ReserveCode(h.createRequestContext(c, "/api/v1/tenants/"+c.Params("tenantId")+"/codes/next"), &req, meta)
	if err != nil {
		return h.mapAllocationError(c, err, "Reserve code failed", "RESERVE_CODE_FAILED")
	}
	return h.SuccessResponse(c, fiber.StatusCreated, "Asset code reserved", resp)
}

// ValidateCode checks that a code is reserved and usable by the tenant
// @Summary Validate Asset Code
// @Description Check that a code belongs to the tenant, is still pending and matches the optional reservation id
// @Tags Codes
// @Produce json
// @Param tenantId path int true "Tenant ID"
// @Param code path string true "Asset code"
// @Param reservation_id query string false "Reservation UUID to match"
// @Success 200 {object} dto.APIResponse{data=dto.ValidateCodeResponse}
// @Failure 400 {object} dto.APIResponse
// @Failure 404 {object} dto.APIResponse
// @Failure 409 {object} dto.APIResponse "Already confirmed"
// @Failure 410 {object} dto.APIResponse "Reservation expired"
// @Router /api/v1/tenants/{tenantId}/codes/{code}/validate [get]
func (h *AllocationHandler) ValidateCode(c fiber.Ctx) error {
	tenantID, err := parseUintParam(c.Params("tenantId"))
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid tenant id", "INVALID_TENANT_ID", nil)
	}
	code := c.Params("code")

	req := dto.ValidateCodeRequest{
		TenantID: tenantID,
		Code:     code,
	}
	if rid := c.Query("reservation_id"); rid != "" {
		req.ReservationID = &rid
	}
	if err := h.validator.Struct(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", h.validationDetails(err))
	}

	meta := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	resp, err := h.flow.ValidateCodeForUse(h.createRequestContext(c, "/api/v1/tenants/"+c.Params("tenantId")+"/codes/"+code+"/validate"), &req, meta)
	if err != nil {
		return h.mapAllocationError(c, err, "Validate code failed", "VALIDATE_CODE_FAILED")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Asset code is usable", resp)
}

// confirmReservationBody is the JSON body of the confirm endpoint.
type confirmReservationBody struct {
	RecordID int64 `json:"record_id"`
}

// ConfirmReservation permanently binds a reservation to an inventory record
// @Summary Confirm Reservation
// @Description Bind a pending reservation to the inventory record that consumed the code
// @Tags Reservations
// @Accept json
// @Produce json
// @Param reservationId path string true "Reservation UUID"
// @Param request body confirmReservationBody true "Record binding payload"
// @Success 200 {object} dto.APIResponse{data=dto.ConfirmReservationResponse}
// @Failure 400 {object} dto.APIResponse
// @Failure 404 {object} dto.APIResponse
// @Failure 409 {object} dto.APIResponse "Already confirmed with a different record"
// @Failure 410 {object} dto.APIResponse "Reservation expired"
// @Router /api/v1/reservations/{reservationId}/confirm [post]
func (h *AllocationHandler) ConfirmReservation(c fiber.Ctx) error {
	var body confirmReservationBody
	if err := c.Bind().JSON(&body); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", nil)
	}

	req := dto.ConfirmReservationRequest{
		ReservationID: c.Params("reservationId"),
		RecordID:      body.RecordID,
	}
	if err := h.validator.Struct(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", h.validationDetails(err))
	}

	meta := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	resp, err := h.flow.ConfirmReservation(h.createRequestContext(c, "/api/v1/reservations/"+req.ReservationID+"/confirm"), &req, meta)
	if err != nil {
		return h.mapAllocationError(c, err, "Confirm reservation failed", "CONFIRM_RESERVATION_FAILED")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Reservation confirmed", resp)
}

// Cleanup removes expired unconfirmed reservations
// @Summary Cleanup Expired Reservations
// @Description Delete expired unconfirmed reservations and report how many were removed
// @Tags Reservations
// @Produce json
// @Success 200 {object} dto.APIResponse{data=dto.CleanupResponse}
// @Failure 500 {object} dto.APIResponse
// @Router /api/v1/reservations/cleanup [post]
func (h *AllocationHandler) Cleanup(c fiber.Ctx) error {
	resp, err := h.flow.CleanupExpired(h.createRequestContext(c, "/api/v1/reservations/cleanup"))
	if err != nil {
		log.Println("Cleanup expired reservations failed:", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Cleanup failed", "CLEANUP_FAILED", nil)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Expired reservations removed", resp)
}

// mapAllocationError translates business errors into HTTP status codes.
func (h *AllocationHandler) mapAllocationError(c fiber.Ctx, err error, message, code string) error {
	switch {
	case businessflow.IsTenantNotFound(err), businessflow.IsCategoryNotFound(err),
		businessflow.IsReservationNotFound(err), businessflow.IsCodeNotReserved(err):
		return h.ErrorResponse(c, fiber.StatusNotFound, message, code, err.Error())
	case businessflow.IsTenantCodeMissing(err), businessflow.IsCategoryCodeMissing(err),
		businessflow.IsInvalidTTL(err), businessflow.IsInvalidAssetCode(err),
		businessflow.IsWrongTenant(err), businessflow.IsReservationMismatch(err):
		return h.ErrorResponse(c, fiber.StatusBadRequest, message, code, err.Error())
	case businessflow.IsAlreadyConfirmed(err), businessflow.IsDuplicateAssetCode(err):
		return h.ErrorResponse(c, fiber.StatusConflict, message, code, err.Error())
	case businessflow.IsReservationExpired(err):
		return h.ErrorResponse(c, fiber.StatusGone, message, code, err.Error())
	case businessflow.IsAllocationContention(err):
		return h.ErrorResponse(c, fiber.StatusServiceUnavailable, message, code, err.Error())
	default:
		log.Println(message+":", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, message, code, nil)
	}
}

func (h *AllocationHandler) validationDetails(err error) any {
	if verrs, ok := err.(validator.ValidationErrors); ok {
		messages := make([]string, 0, len(verrs))
		for _, verr := range verrs {
			messages = append(messages, getValidationErrorMessage(verr))
		}
		return messages
	}
	return err.Error()
}

func parseUintParam(raw string) (uint, error) {
	v, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || v == 0 {
		return 0, strconv.ErrSyntax
	}
	return uint(v), nil
}

func (h *AllocationHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	return h.createRequestContextWithTimeout(c, endpoint, 30*time.Second)
}

func (h *AllocationHandler) createRequestContextWithTimeout(c fiber.Ctx, endpoint string, timeout time.Duration) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	ctx = context.WithValue(ctx, utils.RequestIDKey, c.Get("X-Request-ID"))
	ctx = context.WithValue(ctx, utils.UserAgentKey, c.Get("User-Agent"))
	ctx = context.WithValue(ctx, utils.IPAddressKey, c.IP())
	ctx = context.WithValue(ctx, utils.EndpointKey, endpoint)
	ctx = context.WithValue(ctx, utils.TimeoutKey, timeout)
	ctx = context.WithValue(ctx, utils.CancelFuncKey, cancel)
	return ctx
}
