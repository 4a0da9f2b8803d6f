package routes

import (
	"context"
	"net/http"
	"strconv"

	"pipevine/cmd/internal/service"
	"pipevine/cmd/internal/utils"
	"pipevine/cmd/internal/utils/apierror"

	"github.com/labstack/echo/v4"
)

type MeetingService interface {
	GetMeetings(subId string) ([]*service.MeetingResponse, apierror.ErrorResponse)
	AvailableSlots(date, timezone string) ([]string, apierror.ErrorResponse)
	Reconcile(req *service.ReconcileRequest) (*service.TimeFieldsResponse, apierror.ErrorResponse)
	ResolveInstants(req *service.ResolveRequest) (*service.ResolvedInstants, apierror.ErrorResponse)
	DetectConflicts(req *service.ConflictRequest, subId string) ([]*service.MeetingResponse, apierror.ErrorResponse)
	SaveMeeting(ctx context.Context, draft *service.MeetingDraft, subId string) (*service.MeetingResponse, apierror.ErrorResponse)
	CancelMeeting(ctx context.Context, id int, subId string) apierror.ErrorResponse
}

type DefaultMeetingRoute struct {
	MeetingService MeetingService
}

func NewMeetingDefault(meetingService MeetingService) *DefaultMeetingRoute {
	return &DefaultMeetingRoute{MeetingService: meetingService}
}

func (m *DefaultMeetingRoute) GetMeetings(c echo.Context) error {
	data, err := utils.ParseTokenDataCtx(c)
	if err != nil {
		return c.JSON(401, apierror.InvalidAuthTokenError)
	}

	meetings, apierr := m.MeetingService.GetMeetings(data.Sub)
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}

	resp := echo.Map{"meetings": meetings}
	return c.JSON(http.StatusOK, &resp)
}

func (m *DefaultMeetingRoute) GetSlots(c echo.Context) error {
	date := c.QueryParam("date")
	if date == "" {
		return c.JSON(400, apierror.NewMissingParamError("date"))
	}

	slots, apierr := m.MeetingService.AvailableSlots(date, c.QueryParam("timezone"))
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}

	resp := echo.Map{"slots": slots}
	return c.JSON(http.StatusOK, &resp)
}

func (m *DefaultMeetingRoute) Reconcile(c echo.Context) error {
	var req service.ReconcileRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(400, apierror.MalformedBodyError)
	}

	fields, apierr := m.MeetingService.Reconcile(&req)
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}
	return c.JSON(http.StatusOK, fields)
}

func (m *DefaultMeetingRoute) ResolveInstants(c echo.Context) error {
	var req service.ResolveRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(400, apierror.MalformedBodyError)
	}

	instants, apierr := m.MeetingService.ResolveInstants(&req)
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}
	return c.JSON(http.StatusOK, instants)
}

func (m *DefaultMeetingRoute) DetectConflicts(c echo.Context) error {
	var req service.ConflictRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(400, apierror.MalformedBodyError)
	}

	data, err := utils.ParseTokenDataCtx(c)
	if err != nil {
		return c.JSON(401, apierror.InvalidAuthTokenError)
	}

	conflicts, apierr := m.MeetingService.DetectConflicts(&req, data.Sub)
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}

	resp := echo.Map{"conflicts": conflicts}
	return c.JSON(http.StatusOK, &resp)
}

func (m *DefaultMeetingRoute) SaveMeeting(c echo.Context) error {
	var draft service.MeetingDraft
	if err := c.Bind(&draft); err != nil {
		return c.JSON(400, apierror.MalformedBodyError)
	}

	data, err := utils.ParseTokenDataCtx(c)
	if err != nil {
		return c.JSON(401, apierror.InvalidAuthTokenError)
	}

	meeting, apierr := m.MeetingService.SaveMeeting(c.Request().Context(), &draft, data.Sub)
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}

	status := http.StatusOK
	if draft.ID == 0 || meeting.ID != draft.ID {
		status = http.StatusCreated
	}
	return c.JSON(status, meeting)
}

func (m *DefaultMeetingRoute) CancelMeeting(c echo.Context) error {
	idParam := c.Param("id")
	id, err := strconv.Atoi(idParam)
	if err != nil {
		errResp := apierror.NewSimple(400, "ID is not a number")
		return c.JSON(errResp.Code(), errResp)
	}

	data, err := utils.ParseTokenDataCtx(c)
	if err != nil {
		return c.JSON(401, apierror.InvalidAuthTokenError)
	}

	apierr := m.MeetingService.CancelMeeting(c.Request().Context(), id, data.Sub)
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}
	return c.NoContent(http.StatusOK)
}
