package handler

import (
	"go.uber.org/zap"

	"github.com/nmearl/cds-api/internal/service"
)

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Account *AccountHandler
	Class   *ClassHandler
	Roster  *RosterHandler
	Story   *StoryHandler
	Hubble  *HubbleHandler
	Export  *ExportHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service, logger *zap.Logger) *Handler {
	return &Handler{
		Account: NewAccountHandler(svc.Account, logger),
		Class:   NewClassHandler(svc.Class),
		Roster:  NewRosterHandler(svc.Roster),
		Story:   NewStoryHandler(svc.Story),
		Hubble:  NewHubbleHandler(svc.Measurement, svc.Galaxy),
		Export:  NewExportHandler(svc.Export),
	}
}
