package registration

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"identikit/internal/identity"
	"identikit/internal/platform/metrics"
	"identikit/internal/verification"
	"identikit/pkg/platform/retry"
	"identikit/pkg/platform/sentinel"
	pstrings "identikit/pkg/platform/strings"
)

const (
	defaultFlowKey    = "registration:professional"
	defaultEntryPoint = "signup"
	defaultUserType   = "professional"
)

// Wizard drives a single registration flow: bounded step transitions,
// draft persistence on every mutation, and the submission pipeline. Not
// safe to share across flows; one Wizard per registration.
type Wizard struct {
	drafts  DraftStore
	svc     identity.Service
	retry   *retry.Policy
	log     zerolog.Logger
	metrics *metrics.Metrics

	flowKey    string
	entryPoint string
	userType   string

	mu     sync.Mutex
	draft  Draft
	resume *ResumeUpload
}

// Option configures a Wizard.
type Option func(*Wizard)

// WithLogger attaches a logger.
func WithLogger(log zerolog.Logger) Option {
	return func(w *Wizard) { w.log = log }
}

// WithMetrics attaches lifecycle metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(w *Wizard) { w.metrics = m }
}

// WithRetryPolicy overrides the submission retry envelope.
func WithRetryPolicy(p *retry.Policy) Option {
	return func(w *Wizard) {
		if p != nil {
			w.retry = p
		}
	}
}

// WithFlowKey namespaces the persisted draft, for hosts running more
// than one flow variant.
func WithFlowKey(key string) Option {
	return func(w *Wizard) {
		if key != "" {
			w.flowKey = key
		}
	}
}

// WithEntryPoint tags validation requests with the flow's entry point.
func WithEntryPoint(ep string) Option {
	return func(w *Wizard) {
		if ep != "" {
			w.entryPoint = ep
		}
	}
}

// WithUserType sets the account type being registered.
func WithUserType(ut string) Option {
	return func(w *Wizard) {
		if ut != "" {
			w.userType = ut
		}
	}
}

// New constructs a Wizard. Call Begin before anything else.
func New(drafts DraftStore, svc identity.Service, opts ...Option) *Wizard {
	w := &Wizard{
		drafts:     drafts,
		svc:        svc,
		retry:      retry.New(retry.WithClassifier(identity.IsTransient)),
		log:        zerolog.Nop(),
		metrics:    nil,
		flowKey:    defaultFlowKey,
		entryPoint: defaultEntryPoint,
		userType:   defaultUserType,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(w)
		}
	}
	return w
}

// Begin loads any persisted draft for the flow key, or starts a fresh
// one. It reports whether an in-progress draft was resumed. A draft
// already marked submitted is loaded as-is; callers should check
// Submitted and route to the verification gate rather than the steps.
func (w *Wizard) Begin(ctx context.Context) (resumed bool, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	d, err := w.drafts.Load(ctx, w.flowKey)
	switch {
	case err == nil:
		w.draft = *d
		w.log.Debug().Str("draft_id", d.ID).Int("step", int(d.Step)).
			Bool("submitted", d.Submitted).Msg("resumed registration draft")
		return true, nil
	case errors.Is(err, sentinel.ErrNotFound):
		w.draft = Draft{ID: uuid.NewString(), Step: StepBasicInfo}
		return false, nil
	default:
		return false, fmt.Errorf("load registration draft: %w", err)
	}
}

// Step returns the current wizard step.
func (w *Wizard) Step() Step {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.draft.Step
}

// Submitted reports whether this draft already went through Submit.
func (w *Wizard) Submitted() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.draft.Submitted
}

// Fields returns a copy of the collected fields.
func (w *Wizard) Fields() Fields {
	w.mu.Lock()
	defer w.mu.Unlock()
	f := w.draft.Fields
	f.TopSkills = append([]string(nil), f.TopSkills...)
	return f
}

// Update applies a mutation to the draft fields and persists the result.
// Skill lists are normalized on the way in: trimmed, case-insensitively
// deduplicated, capped.
func (w *Wizard) Update(ctx context.Context, mutate func(*Fields)) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	mutate(&w.draft.Fields)
	w.draft.Fields.TopSkills = pstrings.CapLen(
		pstrings.DedupeAndTrimFold(w.draft.Fields.TopSkills), skillsMax)
	return w.persistLocked(ctx)
}

// AttachResume validates and attaches a resume selection. Invalid
// selections are rejected with a field-keyed message and leave the draft
// untouched.
func (w *Wizard) AttachResume(ctx context.Context, up ResumeUpload) error {
	if msg := validateResume(&up); msg != "" {
		return &FieldError{Field: "resume", Message: msg}
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.resume = &up
	w.draft.Fields.ResumeFileName = up.FileName
	return w.persistLocked(ctx)
}

// RemoveResume detaches any selected resume.
func (w *Wizard) RemoveResume(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.resume = nil
	w.draft.Fields.ResumeFileName = ""
	return w.persistLocked(ctx)
}

// Advance validates the current step and, when it passes and a later
// step exists, moves forward and persists. A non-empty map means the
// step was rejected and no transition happened. Advancing past the last
// step is a no-op; submission is explicit via Submit.
func (w *Wizard) Advance(ctx context.Context) (map[string]string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	errs := ValidateStep(w.draft.Step, w.draft.Fields, w.resume)
	if len(errs) > 0 {
		return errs, nil
	}
	if w.draft.Step >= LastStep {
		return nil, nil
	}
	w.draft.Step++
	return nil, w.persistLocked(ctx)
}

// Retreat moves one step back. Already-collected fields and their
// validation state are kept. At the first step it is a no-op.
func (w *Wizard) Retreat(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.draft.Step <= StepBasicInfo {
		return nil
	}
	w.draft.Step--
	return w.persistLocked(ctx)
}

// Submit runs the submission pipeline: local validation of every step,
// server-side validation, account creation, and verification dispatch.
// The returned Outcome always settles; an error return means the draft
// store itself failed. The draft survives every outcome except a cleared
// flow; it is only removed by Complete or Cancel.
func (w *Wizard) Submit(ctx context.Context) (*Outcome, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for step := StepBasicInfo; step <= LastStep; step++ {
		if errs := ValidateStep(step, w.draft.Fields, w.resume); len(errs) > 0 {
			w.metrics.IncrementRegistration(string(OutcomeValidationFailed))
			return &Outcome{Kind: OutcomeValidationFailed, FieldErrors: errs}, nil
		}
	}

	f := w.draft.Fields

	var validation *identity.ValidationResult
	err := w.retryDo(ctx, "validate_registration", func(ctx context.Context) error {
		var err error
		validation, err = w.svc.ValidateRegistration(ctx, &identity.ValidationRequest{
			EntryPoint: w.entryPoint,
			UserType:   w.userType,
			Data:       w.validationData(),
		})
		return err
	})
	if err != nil {
		return w.transientOutcome("validate registration", err), nil
	}
	if !validation.Valid {
		w.metrics.IncrementRegistration(string(OutcomeValidationFailed))
		return &Outcome{Kind: OutcomeValidationFailed, Errors: validation.Errors}, nil
	}

	var registered *identity.RegisterResult
	err = w.retryDo(ctx, "register", func(ctx context.Context) error {
		var err error
		registered, err = w.svc.Register(ctx, w.registerRequest())
		return err
	})
	if err != nil {
		if identity.IsDuplicateAccount(err) {
			// Not a failure: the address already has an account, so the
			// flow re-routes to verification for it.
			w.log.Info().Str("email", f.Email).Msg("registration hit existing account, routing to verification")
			out := &Outcome{Kind: OutcomeExistingUser, Email: f.Email}
			w.dispatchVerification(ctx, out)
			w.draft.Submitted = true
			if perr := w.persistLocked(ctx); perr != nil {
				return nil, perr
			}
			w.metrics.IncrementRegistration(string(OutcomeExistingUser))
			return out, nil
		}
		return w.transientOutcome("register", err), nil
	}

	w.draft.UserID = registered.UserID
	w.draft.Submitted = true
	if perr := w.persistLocked(ctx); perr != nil {
		return nil, perr
	}

	out := &Outcome{Kind: OutcomeNewUser, UserID: registered.UserID, Email: f.Email}
	w.dispatchVerification(ctx, out)
	w.metrics.IncrementRegistration(string(OutcomeNewUser))
	w.log.Info().Str("user_id", registered.UserID).Str("channel", out.VerificationChannel).
		Msg("registration submitted")
	return out, nil
}

// Gate builds the verification gate for a settled submission: the same
// identity service, the channel the dispatch went out on, and the
// resend cooldown armed from the submit-time send so the gate never
// offers an immediate duplicate.
func (w *Wizard) Gate(out *Outcome, opts ...verification.Option) *verification.Gate {
	w.mu.Lock()
	name := w.draft.Fields.Name
	w.mu.Unlock()

	mode := verification.ModePIN
	if out.VerificationChannel == ChannelLink {
		mode = verification.ModeLink
	}
	base := []verification.Option{
		verification.WithMode(mode),
		verification.WithLastSentAt(out.DispatchedAt),
		verification.WithLogger(w.log),
		verification.WithMetrics(w.metrics),
		verification.WithRetryPolicy(w.retry),
	}
	return verification.New(w.svc, out.Email, name, append(base, opts...)...)
}

// Complete clears the draft after the user finished verification.
func (w *Wizard) Complete(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.drafts.Clear(ctx, w.flowKey)
}

// Cancel abandons the flow and clears the draft.
func (w *Wizard) Cancel(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.drafts.Clear(ctx, w.flowKey)
}

// dispatchVerification sends the first verification code, falling back
// to the magic link when the code channel is not configured. Dispatch
// failures are recorded on the outcome but never fail the submission;
// the gate owns resends.
func (w *Wizard) dispatchVerification(ctx context.Context, out *Outcome) {
	f := w.draft.Fields
	out.VerificationChannel = ChannelPIN
	err := w.retryDo(ctx, "send_verification_code", func(ctx context.Context) error {
		return w.svc.SendVerificationCode(ctx, f.Email, f.Name)
	})
	if err == nil {
		out.DispatchedAt = nowUTC()
		w.metrics.IncrementVerificationSend(ChannelPIN, "ok")
		return
	}

	if identity.IsNotConfigured(err) {
		out.VerificationChannel = ChannelLink
		lerr := w.retryDo(ctx, "send_verification_link", func(ctx context.Context) error {
			return w.svc.SendVerificationLink(ctx, f.Email)
		})
		if lerr == nil {
			out.DispatchedAt = nowUTC()
			w.metrics.IncrementVerificationSend(ChannelLink, "fallback")
			return
		}
		err = lerr
	}

	if identity.IsRateLimited(err) {
		// The throttle is already in effect server-side; the gate must
		// start inside the cooldown window, not before it.
		out.RateLimited = true
		out.DispatchedAt = nowUTC()
		w.metrics.IncrementVerificationSend(out.VerificationChannel, "cooldown")
	} else {
		w.metrics.IncrementVerificationSend(out.VerificationChannel, "failed")
	}
	out.VerificationErr = err
	w.log.Warn().Err(err).Str("channel", out.VerificationChannel).
		Msg("verification dispatch failed, gate will allow resend")
}

func (w *Wizard) transientOutcome(op string, err error) *Outcome {
	w.log.Warn().Err(err).Str("operation", op).Msg("registration submission failed, draft preserved")
	w.metrics.IncrementRegistration(string(OutcomeTransientFailure))
	return &Outcome{Kind: OutcomeTransientFailure, Err: err}
}

func (w *Wizard) retryDo(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	attempts := 0
	err := w.retry.Do(ctx, func(ctx context.Context) error {
		attempts++
		return fn(ctx)
	})
	w.metrics.ObserveRetryAttempts(op, attempts)
	return err
}

func (w *Wizard) persistLocked(ctx context.Context) error {
	w.draft.UpdatedAt = nowUTC()
	if err := w.drafts.Save(ctx, w.flowKey, &w.draft); err != nil {
		return fmt.Errorf("persist registration draft: %w", err)
	}
	return nil
}

func (w *Wizard) validationData() map[string]any {
	f := w.draft.Fields
	return map[string]any{
		"email":             f.Email,
		"password":          f.Password,
		"name":              f.Name,
		"title":             f.Title,
		"phoneNumber":       f.Phone,
		"location":          f.Location,
		"yearsOfExperience": f.YearsOfExperience,
		"currentCompany":    f.CurrentCompany,
		"seniority":         f.Seniority,
		"topSkills":         f.TopSkills,
		"highestEducation":  f.HighestEducation,
	}
}

func (w *Wizard) registerRequest() *identity.RegisterRequest {
	f := w.draft.Fields
	return &identity.RegisterRequest{
		Email:             f.Email,
		Password:          f.Password,
		Name:              f.Name,
		UserType:          w.userType,
		Title:             f.Title,
		PhoneNumber:       f.Phone,
		Location:          f.Location,
		YearsOfExperience: f.YearsOfExperience,
		CurrentCompany:    f.CurrentCompany,
		Seniority:         f.Seniority,
		TopSkills:         f.TopSkills,
		HighestEducation:  f.HighestEducation,
		ResumeFileName:    f.ResumeFileName,
	}
}

func nowUTC() time.Time { return time.Now().UTC() }

// FieldError is a single-field rejection, used where a whole error map
// is overkill.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}
