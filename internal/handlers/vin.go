package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bigsauer/rp-exotics-platform/internal/vindecode"
	appErrors "github.com/bigsauer/rp-exotics-platform/pkg/errors"
	"github.com/bigsauer/rp-exotics-platform/pkg/response"
)

// VINHandler fronts the upstream VIN decode gateway.
type VINHandler struct {
	decoder *vindecode.Client
}

func NewVINHandler(decoder *vindecode.Client) *VINHandler {
	return &VINHandler{decoder: decoder}
}

// GET /api/vin/:vin
func (h *VINHandler) Decode(c *gin.Context) {
	h.decode(c, c.Param("vin"))
}

type decodeRequest struct {
	VIN string `json:"vin" validate:"required"`
}

// POST /api/vin/decode
func (h *VINHandler) DecodeBody(c *gin.Context) {
	var req decodeRequest
	if !bindAndValidate(c, &req) {
		return
	}
	h.decode(c, req.VIN)
}

func (h *VINHandler) decode(c *gin.Context, vin string) {
	result, err := h.decoder.Decode(requestContext(c), vin)
	if err != nil {
		switch {
		case errors.Is(err, vindecode.ErrInvalidVIN):
			response.Error(c, appErrors.NewBadRequest("VIN must be 17 characters and contain no I, O or Q"))
		case errors.Is(err, vindecode.ErrUpstreamUnavailable):
			response.Error(c, appErrors.ErrUpstreamUnavailable)
		default:
			response.Error(c, appErrors.ErrInternalServer.WithInternal(err))
		}
		return
	}
	response.Success(c, http.StatusOK, result)
}
