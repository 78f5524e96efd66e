package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/xavierca1/muyu-crm/internal/infra/http/middleware"
	"github.com/xavierca1/muyu-crm/internal/usecase"
)

type CampaignHandler struct {
	Outbound *usecase.OutboundUseCase
	Log      *zap.Logger
}

func (h *CampaignHandler) SendEmail(w http.ResponseWriter, r *http.Request) {
	var in usecase.CampaignInput
	if !decodeJSON(w, r, &in) {
		return
	}
	out, err := h.Outbound.SendCampaign(r.Context(), principal(r), in)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	for i := 0; i < out.Dispatched; i++ {
		middleware.RecordOutbound(usecase.ChannelEmail, true)
	}
	for range out.Failures {
		middleware.RecordOutbound(usecase.ChannelEmail, false)
	}
	writeJSON(w, http.StatusAccepted, out)
}
