package service

import (
	"context"
	"strings"
	"sync"

	"pipevine/cmd/internal/domain/entity"
	"pipevine/cmd/internal/integration/teams"
	"pipevine/cmd/internal/scheduling"
	"pipevine/cmd/internal/utils"
	"pipevine/cmd/internal/utils/apierror"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/gommon/log"
)

type MeetingRepository interface {
	Insert(meeting *entity.Meeting) error
	Update(meeting *entity.Meeting) error
	FindByID(id int) (*entity.Meeting, error)
	FindByUserID(id int) ([]*entity.Meeting, error)
	FindOverlapping(userID int, begin, end int64) ([]*entity.Meeting, error)
}

type UserRepository interface {
	FindByID(id int) (*entity.User, error)
	FindBySub(sub string) (*entity.User, error)
}

type LeadRepository interface {
	FindByID(id int) (*entity.Lead, error)
}

type ContactRepository interface {
	FindByID(id int) (*entity.Contact, error)
}

// MeetingProvider is the external meeting-link service. Calls either fully
// succeed or fully fail; the coordinator never issues them concurrently
// with a local write.
type MeetingProvider interface {
	Create(ctx context.Context, req *teams.MeetingRequest) (*teams.MeetingLink, error)
	Update(ctx context.Context, externalID string, req *teams.MeetingRequest) error
	Cancel(ctx context.Context, externalID, joinURL string) error
}

// MeetingDraft is the editor's serializable working state. The server holds
// nothing between calls; reconcile and resolve are pure functions of the
// draft the client sends.
type MeetingDraft struct {
	ID              int      `json:"id"`
	SessionID       string   `json:"session_id"`
	Subject         string   `json:"subject" validate:"required,max=128"`
	Date            string   `json:"date" validate:"required,dateonly"`
	StartTime       string   `json:"start_time" validate:"required,timeofday"`
	EndTime         string   `json:"end_time" validate:"required,timeofday"`
	DurationMinutes int      `json:"duration_minutes" validate:"min=0,max=1440"`
	Timezone        string   `json:"timezone"`
	LeadID          *int     `json:"lead_id"`
	ContactID       *int     `json:"contact_id"`
	ExternalEmails  []string `json:"external_emails" validate:"dive,email"`
	Description     string   `json:"description" validate:"max=2048"`
	Outcome         string   `json:"outcome" validate:"max=2048"`
	Notes           string   `json:"notes" validate:"max=2048"`
}

type ReconcileRequest struct {
	StartTime       string `json:"start_time" validate:"required,timeofday"`
	EndTime         string `json:"end_time" validate:"required,timeofday"`
	DurationMinutes int    `json:"duration_minutes" validate:"min=0,max=1440"`
	EditField       string `json:"edit_field" validate:"required,oneof=start end duration"`
	EditTime        string `json:"edit_time" validate:"omitempty,timeofday"`
	EditMinutes     int    `json:"edit_minutes" validate:"min=0,max=1440"`
}

type TimeFieldsResponse struct {
	StartTime       string `json:"start_time"`
	EndTime         string `json:"end_time"`
	DurationMinutes int    `json:"duration_minutes"`
	Mode            string `json:"mode"`
}

type ResolveRequest struct {
	Date      string `json:"date" validate:"required,dateonly"`
	StartTime string `json:"start_time" validate:"required,timeofday"`
	EndTime   string `json:"end_time" validate:"required,timeofday"`
	Timezone  string `json:"timezone"`
}

type ResolvedInstants struct {
	StartInstant string `json:"start_instant"`
	EndInstant   string `json:"end_instant"`
}

type ConflictRequest struct {
	CandidateStart string `json:"candidate_start" validate:"required,iso8601"`
	CandidateEnd   string `json:"candidate_end" validate:"required,iso8601"`
	ExcludeID      int    `json:"exclude_id"`
}

type ParticipantResponse struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}

type MeetingResponse struct {
	ID           int                    `json:"id"`
	Subject      string                 `json:"subject"`
	BeginsAt     string                 `json:"begins_at"`
	EndsAt       string                 `json:"ends_at"`
	Timezone     string                 `json:"timezone"`
	Status       string                 `json:"status"`
	JoinURL      string                 `json:"join_url,omitempty"`
	LeadID       *int                   `json:"lead_id,omitempty"`
	ContactID    *int                   `json:"contact_id,omitempty"`
	Participants []*ParticipantResponse `json:"participants"`
	Description  string                 `json:"description,omitempty"`
	Outcome      string                 `json:"outcome,omitempty"`
	Notes        string                 `json:"notes,omitempty"`
	CreatedAt    string                 `json:"created_at"`
	UpdatedAt    string                 `json:"updated_at"`
}

type DefaultMeetingService struct {
	MeetingRepo MeetingRepository
	UserRepo    UserRepository
	LeadRepo    LeadRepository
	ContactRepo ContactRepository
	Provider    MeetingProvider
	Validate    *validator.Validate
	Clock       *scheduling.Clock
	Catalog     *scheduling.SlotCatalog

	// One in-flight save per editing session.
	inflight sync.Map
}

func NewMeetingService(
	meetingRepo MeetingRepository,
	userRepo UserRepository,
	leadRepo LeadRepository,
	contactRepo ContactRepository,
	provider MeetingProvider,
	validate *validator.Validate,
	clock *scheduling.Clock,
) *DefaultMeetingService {
	return &DefaultMeetingService{
		MeetingRepo: meetingRepo,
		UserRepo:    userRepo,
		LeadRepo:    leadRepo,
		ContactRepo: contactRepo,
		Provider:    provider,
		Validate:    validate,
		Clock:       clock,
		Catalog:     scheduling.NewSlotCatalog(clock),
	}
}

func (s *DefaultMeetingService) GetMeetings(subId string) ([]*MeetingResponse, apierror.ErrorResponse) {
	caller, err := s.UserRepo.FindBySub(subId)
	if err != nil {
		log.Errorf("failed to fetch user %s: %v", subId, err)
		return nil, apierror.InternalServerError
	}
	if caller == nil {
		return nil, apierror.NotFoundError
	}

	meetings, err := s.MeetingRepo.FindByUserID(caller.ID)
	if err != nil {
		log.Errorf("failed to find meetings for user %d: %v", caller.ID, err)
		return nil, apierror.InternalServerError
	}

	now := s.Clock.Instant().UnixMilli()
	response := make([]*MeetingResponse, len(meetings))
	for i, m := range meetings {
		response[i] = toMeetingResponse(m, now)
	}
	return response, nil
}

// AvailableSlots lists the offerable start times for a date in a timezone.
func (s *DefaultMeetingService) AvailableSlots(dateStr, tz string) ([]string, apierror.ErrorResponse) {
	date, err := scheduling.ParseDate(dateStr)
	if err != nil {
		return nil, apierror.NewSimple(400, "Could not understand date, expected YYYY-MM-DD")
	}

	slots := s.Catalog.AvailableSlots(date, tz)
	out := make([]string, len(slots))
	for i, slot := range slots {
		out[i] = slot.String()
	}
	return out, nil
}

// Reconcile applies one user edit to the three mutually-derived time fields
// and returns the consistent result. Pure: same state and edit, same answer.
func (s *DefaultMeetingService) Reconcile(req *ReconcileRequest) (*TimeFieldsResponse, apierror.ErrorResponse) {
	utils.Sanitize(req)
	if err := s.Validate.Struct(req); err != nil {
		return nil, apierror.FromValidationError(err)
	}

	fields, apierr := parseTimeFields(req.StartTime, req.EndTime, req.DurationMinutes)
	if apierr != nil {
		return nil, apierr
	}

	edit := scheduling.Edit{Field: scheduling.EditField(req.EditField), Minutes: req.EditMinutes}
	if edit.Field != scheduling.EditDuration {
		t, err := scheduling.ParseTimeOfDay(req.EditTime)
		if err != nil {
			return nil, apierror.NewSimple(400, "Could not understand edit_time, expected HH:MM")
		}
		edit.Time = t
	}

	result := fields.Apply(edit)
	return &TimeFieldsResponse{
		StartTime:       result.StartTime.String(),
		EndTime:         result.EndTime.String(),
		DurationMinutes: result.DurationMinutes,
		Mode:            string(result.Mode),
	}, nil
}

// ResolveInstants canonicalizes a wall-clock selection into the [start, end)
// UTC interval, rolling the end to the next day on midnight crossing.
func (s *DefaultMeetingService) ResolveInstants(req *ResolveRequest) (*ResolvedInstants, apierror.ErrorResponse) {
	utils.Sanitize(req)
	if err := s.Validate.Struct(req); err != nil {
		return nil, apierror.FromValidationError(err)
	}

	begin, end, apierr := s.resolveDraftInterval(req.Date, req.StartTime, req.EndTime, req.Timezone)
	if apierr != nil {
		return nil, apierr
	}

	return &ResolvedInstants{
		StartInstant: utils.FormatEpoch(begin),
		EndInstant:   utils.FormatEpoch(end),
	}, nil
}

// DetectConflicts reports which of the caller's meetings overlap the
// candidate interval. Advisory only: it never blocks a save.
func (s *DefaultMeetingService) DetectConflicts(req *ConflictRequest, subId string) ([]*MeetingResponse, apierror.ErrorResponse) {
	utils.Sanitize(req)
	if err := s.Validate.Struct(req); err != nil {
		return nil, apierror.FromValidationError(err)
	}

	caller, err := s.UserRepo.FindBySub(subId)
	if err != nil {
		log.Errorf("failed to fetch user %s: %v", subId, err)
		return nil, apierror.InternalServerError
	}
	if caller == nil {
		return nil, apierror.NotFoundError
	}

	begin, _ := utils.FromEpoch(req.CandidateStart)
	end, _ := utils.FromEpoch(req.CandidateEnd)
	if begin >= end {
		return nil, apierror.NewSimple(400, "candidate_start must be before candidate_end")
	}

	existing, err := s.MeetingRepo.FindOverlapping(caller.ID, begin, end)
	if err != nil {
		log.Errorf("failed to query overlapping meetings for user %d: %v", caller.ID, err)
		return nil, apierror.InternalServerError
	}

	byID := make(map[int]*entity.Meeting, len(existing))
	bookings := make([]scheduling.Booking, len(existing))
	for i, m := range existing {
		byID[m.ID] = m
		bookings[i] = scheduling.Booking{ID: m.ID, BeginsAt: m.BeginsAt, EndsAt: m.EndsAt}
	}

	now := s.Clock.Instant().UnixMilli()
	conflicts := []*MeetingResponse{}
	for _, b := range scheduling.FindConflicts(begin, end, req.ExcludeID, bookings) {
		conflicts = append(conflicts, toMeetingResponse(byID[b.ID], now))
	}
	return conflicts, nil
}

// syncAction is the transition the coordinator picks, once, from
// (hasLink, effectiveStatus) before any I/O.
type syncAction int

const (
	actionLocalOnly  syncAction = iota // completed: persist local fields, skip provider
	actionRebook                       // cancelled: fresh provider meeting, forced insert
	actionCreateLink                   // unsynced active: provider create, then persist
	actionUpdateLink                   // synced active: provider update, then persist
)

func chooseAction(hasLink bool, status entity.MeetingStatus) syncAction {
	switch {
	case status == entity.StatusCompleted:
		return actionLocalOnly
	case status == entity.StatusCancelled:
		return actionRebook
	case !hasLink:
		return actionCreateLink
	default:
		return actionUpdateLink
	}
}

// SaveMeeting runs the full save: validation guard, transition selection,
// provider call, then the local write. The provider call always completes
// before the repository is touched, and a provider failure aborts the save
// with local state unchanged.
func (s *DefaultMeetingService) SaveMeeting(ctx context.Context, draft *MeetingDraft, subId string) (*MeetingResponse, apierror.ErrorResponse) {
	caller, err := s.UserRepo.FindBySub(subId)
	if err != nil {
		log.Errorf("failed to fetch user %s: %v", subId, err)
		return nil, apierror.InternalServerError
	}
	if caller == nil {
		return nil, apierror.NotFoundError
	}

	utils.Sanitize(draft)
	if valerr := s.Validate.Struct(draft); valerr != nil {
		return nil, apierror.FromValidationError(valerr)
	}

	if draft.LeadID != nil && draft.ContactID != nil {
		return nil, apierror.NewSimple(422, "Link either a lead or a contact, not both")
	}

	participants, apierr := s.buildParticipants(draft)
	if apierr != nil {
		return nil, apierr
	}

	begin, end, apierr := s.resolveDraftInterval(draft.Date, draft.StartTime, draft.EndTime, draft.Timezone)
	if apierr != nil {
		return nil, apierr
	}

	sessionKey := draft.SessionID
	if sessionKey == "" {
		sessionKey = "user:" + subId
	}
	if _, loaded := s.inflight.LoadOrStore(sessionKey, struct{}{}); loaded {
		return nil, apierror.SaveInProgressError
	}
	defer s.inflight.Delete(sessionKey)

	var existing *entity.Meeting
	if draft.ID != 0 {
		existing, err = s.MeetingRepo.FindByID(draft.ID)
		if err != nil {
			log.Errorf("failed to fetch meeting %d: %v", draft.ID, err)
			return nil, apierror.InternalServerError
		}
		if existing == nil || existing.UserID != caller.ID {
			return nil, apierror.NotFoundError
		}
	}

	now := s.Clock.Instant().UnixMilli()

	// The effective status comes from the stored record: a brand-new draft
	// is an unsynced, active meeting by definition.
	status := entity.StatusScheduled
	hasLink := false
	if existing != nil {
		status = existing.StatusAt(now)
		hasLink = existing.HasJoinURL()
	}

	switch chooseAction(hasLink, status) {
	case actionLocalOnly:
		return s.saveLocalOnly(existing, draft, now)
	case actionRebook:
		fresh := buildMeeting(draft, caller.ID, begin, end, participants, now)
		fresh.CreatedAt = now
		return s.createAndInsert(ctx, fresh)
	case actionCreateLink:
		meeting := buildMeeting(draft, caller.ID, begin, end, participants, now)
		if existing == nil {
			meeting.CreatedAt = now
			return s.createAndInsert(ctx, meeting)
		}
		meeting.ID = existing.ID
		meeting.CreatedAt = existing.CreatedAt
		return s.createAndUpdate(ctx, meeting)
	default:
		meeting := buildMeeting(draft, caller.ID, begin, end, participants, now)
		meeting.ID = existing.ID
		meeting.CreatedAt = existing.CreatedAt
		meeting.JoinURL = existing.JoinURL
		meeting.ExternalID = existing.ExternalID
		return s.pushAndUpdate(ctx, meeting)
	}
}

// CancelMeeting invokes the provider's cancel operation and, only once the
// provider confirms, marks the local record cancelled. A provider failure
// leaves the meeting active.
func (s *DefaultMeetingService) CancelMeeting(ctx context.Context, id int, subId string) apierror.ErrorResponse {
	caller, err := s.UserRepo.FindBySub(subId)
	if err != nil {
		log.Errorf("failed to fetch user %s: %v", subId, err)
		return apierror.InternalServerError
	}

	meeting, err := s.MeetingRepo.FindByID(id)
	if err != nil {
		log.Errorf("failed to fetch meeting %d: %v", id, err)
		return apierror.InternalServerError
	}

	if caller == nil || meeting == nil || meeting.UserID != caller.ID {
		return apierror.NotFoundError
	}
	if meeting.IsCancelled {
		return apierror.NewSimple(409, "Meeting is already cancelled")
	}
	if !meeting.HasJoinURL() {
		return apierror.MeetingNotLinkedError
	}

	externalID := ""
	if meeting.ExternalID != nil {
		externalID = *meeting.ExternalID
	}
	if err := s.Provider.Cancel(ctx, externalID, *meeting.JoinURL); err != nil {
		return apierror.NewProviderError("cancel", err)
	}

	meeting.IsCancelled = true
	meeting.UpdatedAt = s.Clock.Instant().UnixMilli()
	if err := s.MeetingRepo.Update(meeting); err != nil {
		log.Errorf("failed to persist cancellation of meeting %d: %v", id, err)
		return apierror.NewPartialSync(*meeting.JoinURL, err)
	}
	return nil
}

// saveLocalOnly persists edits to a completed meeting. A finished meeting's
// calendar entry is no longer actionable, so the provider is not called.
func (s *DefaultMeetingService) saveLocalOnly(existing *entity.Meeting, draft *MeetingDraft, now int64) (*MeetingResponse, apierror.ErrorResponse) {
	existing.Subject = draft.Subject
	existing.Description = draft.Description
	existing.Outcome = draft.Outcome
	existing.Notes = draft.Notes
	existing.UpdatedAt = now

	if err := s.MeetingRepo.Update(existing); err != nil {
		log.Errorf("failed to save completed meeting %d: %v", existing.ID, err)
		return nil, apierror.InternalServerError
	}
	return toMeetingResponse(existing, now), nil
}

func (s *DefaultMeetingService) createAndInsert(ctx context.Context, meeting *entity.Meeting) (*MeetingResponse, apierror.ErrorResponse) {
	link, err := s.Provider.Create(ctx, toProviderRequest(meeting))
	if err != nil {
		return nil, apierror.NewProviderError("create", err)
	}
	meeting.JoinURL = &link.JoinURL
	meeting.ExternalID = &link.MeetingID

	if err := s.MeetingRepo.Insert(meeting); err != nil {
		log.Errorf("provider meeting %s created but local insert failed: %v", link.MeetingID, err)
		return nil, apierror.NewPartialSync(link.JoinURL, err)
	}
	return toMeetingResponse(meeting, meeting.UpdatedAt), nil
}

func (s *DefaultMeetingService) createAndUpdate(ctx context.Context, meeting *entity.Meeting) (*MeetingResponse, apierror.ErrorResponse) {
	link, err := s.Provider.Create(ctx, toProviderRequest(meeting))
	if err != nil {
		return nil, apierror.NewProviderError("create", err)
	}
	meeting.JoinURL = &link.JoinURL
	meeting.ExternalID = &link.MeetingID

	if err := s.MeetingRepo.Update(meeting); err != nil {
		log.Errorf("provider meeting %s created but local update failed: %v", link.MeetingID, err)
		return nil, apierror.NewPartialSync(link.JoinURL, err)
	}
	return toMeetingResponse(meeting, meeting.UpdatedAt), nil
}

func (s *DefaultMeetingService) pushAndUpdate(ctx context.Context, meeting *entity.Meeting) (*MeetingResponse, apierror.ErrorResponse) {
	externalID := ""
	if meeting.ExternalID != nil {
		externalID = *meeting.ExternalID
	}
	if err := s.Provider.Update(ctx, externalID, toProviderRequest(meeting)); err != nil {
		return nil, apierror.NewProviderError("update", err)
	}

	if err := s.MeetingRepo.Update(meeting); err != nil {
		log.Errorf("provider meeting %s updated but local update failed: %v", externalID, err)
		joinURL := ""
		if meeting.JoinURL != nil {
			joinURL = *meeting.JoinURL
		}
		return nil, apierror.NewPartialSync(joinURL, err)
	}
	return toMeetingResponse(meeting, meeting.UpdatedAt), nil
}

// buildParticipants assembles the deduplicated attendee set from the linked
// lead or contact plus the free-form external addresses. A draft with no
// link and no external addresses fails the guard.
func (s *DefaultMeetingService) buildParticipants(draft *MeetingDraft) ([]entity.Participant, apierror.ErrorResponse) {
	participants := []entity.Participant{}
	seen := map[string]bool{}

	add := func(email, name string) {
		key := strings.ToLower(email)
		if key == "" || seen[key] {
			return
		}
		seen[key] = true
		participants = append(participants, entity.Participant{Email: email, DisplayName: name})
	}

	switch {
	case draft.LeadID != nil:
		lead, err := s.LeadRepo.FindByID(*draft.LeadID)
		if err != nil {
			log.Errorf("failed to fetch lead %d: %v", *draft.LeadID, err)
			return nil, apierror.InternalServerError
		}
		if lead == nil {
			return nil, apierror.NewSimple(422, "Linked lead does not exist")
		}
		add(lead.Email, lead.Name)

	case draft.ContactID != nil:
		contact, err := s.ContactRepo.FindByID(*draft.ContactID)
		if err != nil {
			log.Errorf("failed to fetch contact %d: %v", *draft.ContactID, err)
			return nil, apierror.InternalServerError
		}
		if contact == nil {
			return nil, apierror.NewSimple(422, "Linked contact does not exist")
		}
		add(contact.Email, contact.Name)
	}

	for _, email := range draft.ExternalEmails {
		add(email, "")
	}

	if len(participants) == 0 {
		return nil, apierror.MissingParticipantsError
	}
	return participants, nil
}

func (s *DefaultMeetingService) resolveDraftInterval(dateStr, startStr, endStr, tz string) (int64, int64, apierror.ErrorResponse) {
	date, err := scheduling.ParseDate(dateStr)
	if err != nil {
		return 0, 0, apierror.NewSimple(400, "Could not understand date, expected YYYY-MM-DD")
	}

	start, err := scheduling.ParseTimeOfDay(startStr)
	if err != nil {
		return 0, 0, apierror.NewSimple(400, "Could not understand start_time, expected HH:MM")
	}
	end, err := scheduling.ParseTimeOfDay(endStr)
	if err != nil {
		return 0, 0, apierror.NewSimple(400, "Could not understand end_time, expected HH:MM")
	}

	begin, finish := scheduling.ResolveInstants(s.Clock, date, start, end, tz)
	return begin.UnixMilli(), finish.UnixMilli(), nil
}

func parseTimeFields(startStr, endStr string, duration int) (scheduling.TimeFields, apierror.ErrorResponse) {
	start, err := scheduling.ParseTimeOfDay(startStr)
	if err != nil {
		return scheduling.TimeFields{}, apierror.NewSimple(400, "Could not understand start_time, expected HH:MM")
	}
	end, err := scheduling.ParseTimeOfDay(endStr)
	if err != nil {
		return scheduling.TimeFields{}, apierror.NewSimple(400, "Could not understand end_time, expected HH:MM")
	}
	return scheduling.TimeFields{StartTime: start, EndTime: end, DurationMinutes: duration}, nil
}

func buildMeeting(draft *MeetingDraft, userID int, begin, end int64, participants []entity.Participant, now int64) *entity.Meeting {
	return &entity.Meeting{
		Subject:      draft.Subject,
		BeginsAt:     begin,
		EndsAt:       end,
		Timezone:     draft.Timezone,
		UserID:       userID,
		LeadID:       draft.LeadID,
		ContactID:    draft.ContactID,
		Description:  draft.Description,
		Outcome:      draft.Outcome,
		Notes:        draft.Notes,
		Participants: participants,
		UpdatedAt:    now,
	}
}

func toProviderRequest(meeting *entity.Meeting) *teams.MeetingRequest {
	attendees := make([]teams.Attendee, len(meeting.Participants))
	for i, p := range meeting.Participants {
		attendees[i] = teams.Attendee{Email: p.Email, DisplayName: p.DisplayName}
	}
	return &teams.MeetingRequest{
		Subject:     meeting.Subject,
		StartTime:   utils.FormatEpoch(meeting.BeginsAt),
		EndTime:     utils.FormatEpoch(meeting.EndsAt),
		Timezone:    meeting.Timezone,
		Description: meeting.Description,
		Attendees:   attendees,
	}
}

func toMeetingResponse(m *entity.Meeting, now int64) *MeetingResponse {
	participants := make([]*ParticipantResponse, len(m.Participants))
	for i, p := range m.Participants {
		participants[i] = &ParticipantResponse{Email: p.Email, DisplayName: p.DisplayName}
	}

	joinURL := ""
	if m.JoinURL != nil {
		joinURL = *m.JoinURL
	}

	return &MeetingResponse{
		ID:           m.ID,
		Subject:      m.Subject,
		BeginsAt:     utils.FormatEpoch(m.BeginsAt),
		EndsAt:       utils.FormatEpoch(m.EndsAt),
		Timezone:     m.Timezone,
		Status:       string(m.StatusAt(now)),
		JoinURL:      joinURL,
		LeadID:       m.LeadID,
		ContactID:    m.ContactID,
		Participants: participants,
		Description:  m.Description,
		Outcome:      m.Outcome,
		Notes:        m.Notes,
		CreatedAt:    utils.FormatEpoch(m.CreatedAt),
		UpdatedAt:    utils.FormatEpoch(m.UpdatedAt),
	}
}
