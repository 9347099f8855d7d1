package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"counto/internal/domain"
	"counto/internal/dto"
	"counto/internal/llm"
	"counto/internal/models"
	"counto/internal/observability"
	"counto/internal/repository"
	"counto/pkg/config"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

const (
	noRecordsReply    = "I couldn't find any records to answer that."
	recordPrompt      = "Would you like me to record this transaction with these details?"
	queryContextLimit = 200
)

var (
	negatedRecordPattern = regexp.MustCompile(`(?i)\b(don't|dont|do not)\s+record\b`)
	confirmPattern       = regexp.MustCompile(`(?i)\b(yes|confirm|record it|record this|save it|save this|ok|okay|approve)\b`)
	cancelPattern        = regexp.MustCompile(`(?i)\b(no|cancel|delete|remove)\b`)
)

type Classifier interface {
	Classify(ctx context.Context, req llm.Request) (*llm.Result, error)
}

type ChatService struct {
	ledger       repository.Ledger
	classifier   Classifier
	staging      *StagingService
	confirmation *ConfirmationService
	parties      *PartyService
	historyLimit int
	metrics      *observability.Metrics
	logger       *zap.Logger
}

func NewChatService(
	ledger repository.Ledger,
	classifier Classifier,
	staging *StagingService,
	confirmation *ConfirmationService,
	parties *PartyService,
	cfg config.LLMConfig,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *ChatService {
	return &ChatService{
		ledger:       ledger,
		classifier:   classifier,
		staging:      staging,
		confirmation: confirmation,
		parties:      parties,
		historyLimit: cfg.HistoryLimit,
		metrics:      metrics,
		logger:       logger,
	}
}

// IsConfirmation reports whether message approves a pending transaction.
func IsConfirmation(message string) bool {
	return !IsCancellation(message) && confirmPattern.MatchString(message)
}

func IsCancellation(message string) bool {
	return negatedRecordPattern.MatchString(message) || cancelPattern.MatchString(message)
}

// SendMessage runs one chat turn. The user message is stored before the model
// is called, so it survives an LLM failure.
func (s *ChatService) SendMessage(ctx context.Context, userID uuid.UUID, req *dto.SendMessageRequest) (*dto.ChatResponse, error) {
	ctx, span := tracer.Start(ctx, "ChatService.SendMessage")
	defer span.End()

	start := time.Now()
	defer func() { s.metrics.RecordRequestDuration("chat", time.Since(start)) }()

	content := SanitizeText(req.Content)
	if content == "" {
		return nil, &domain.ErrValidation{Field: "content", Message: "is required"}
	}

	conv, err := s.resolveConversation(ctx, userID, req.ConversationID)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("conversation_id", conv.ID.String()))

	pending, err := s.staging.FindActive(ctx, conv.ID)
	if err != nil {
		return nil, err
	}
	history, err := s.ledger.Conversations().Messages(ctx, conv.ID, s.historyLimit)
	if err != nil {
		return nil, err
	}
	if err := s.appendMessage(ctx, conv.ID, models.SenderUser, content); err != nil {
		return nil, err
	}

	resp := &dto.ChatResponse{ConversationID: conv.ID.String()}

	if pending != nil {
		handled, err := s.resolvePending(ctx, userID, pending, content, resp)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		if handled {
			return resp, nil
		}
	}

	reply, err := s.classify(ctx, userID, conv, content, history, resp)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if err := s.appendMessage(ctx, conv.ID, models.SenderAI, reply); err != nil {
		return nil, err
	}
	resp.Message = reply
	return resp, nil
}

func (s *ChatService) resolveConversation(ctx context.Context, userID uuid.UUID, raw *string) (*models.Conversation, error) {
	if raw != nil && strings.TrimSpace(*raw) != "" {
		id, err := uuid.Parse(strings.TrimSpace(*raw))
		if err != nil {
			return nil, &domain.ErrValidation{Field: "conversation_id", Message: "must be a UUID"}
		}
		return s.ledger.Conversations().Get(ctx, id, userID)
	}

	now := time.Now()
	conv := &models.Conversation{
		ID:        uuid.New(),
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.ledger.Conversations().Create(ctx, conv); err != nil {
		return nil, err
	}
	return conv, nil
}

// resolvePending handles confirmations, cancellations and field shortcuts.
// It reports false when the message should go to the classifier instead.
func (s *ChatService) resolvePending(ctx context.Context, userID uuid.UUID, pending *models.PendingTransaction, content string, resp *dto.ChatResponse) (bool, error) {
	resp.IntentType = string(models.IntentTransaction)

	switch {
	case IsConfirmation(content):
		tx, msg, err := s.confirmation.Confirm(ctx, pending.ID, userID)
		var invalid *domain.ErrValidation
		if errors.As(err, &invalid) {
			reply := fmt.Sprintf("I couldn't record this transaction yet: %s %s. You can fix it by replying, for example, \"amount is 500\".",
				invalid.Field, invalid.Message)
			id := pending.ID.String()
			resp.PendingTransactionID = &id
			resp.Message = reply
			return true, s.appendMessage(ctx, pending.ConversationID, models.SenderAI, reply)
		}
		if err != nil {
			return false, err
		}
		id := tx.ID.String()
		resp.TransactionID = &id
		resp.Message = msg
		return true, nil

	case IsCancellation(content):
		msg, err := s.confirmation.Cancel(ctx, pending.ID, userID)
		if err != nil {
			return false, err
		}
		resp.Message = msg
		return true, nil
	}

	field, value, ok := MatchFieldUpdate(content)
	if !ok {
		return false, nil
	}
	updated, err := s.staging.UpdateField(ctx, pending, field, value)
	var invalid *domain.ErrValidation
	if errors.As(err, &invalid) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	reply := fmt.Sprintf("I've updated the %s to %s. Here's the updated transaction:\n\n%s\n%s",
		strings.ReplaceAll(field, "_", " "), value, SummarizePending(updated), recordPrompt)
	id := updated.ID.String()
	resp.PendingTransactionID = &id
	resp.Message = reply
	return true, s.appendMessage(ctx, pending.ConversationID, models.SenderAI, reply)
}

func (s *ChatService) classify(ctx context.Context, userID uuid.UUID, conv *models.Conversation, content string, history []*models.Message, resp *dto.ChatResponse) (string, error) {
	req := llm.Request{
		Message: content,
		History: history,
		Intent:  llm.DetectIntent(content),
	}

	// an empty QueryContext only means "no records" once a lookup ran
	fetched := llm.LooksLikeQuery(content)
	if fetched {
		req.QueryContext = s.loadQueryContext(ctx, userID, req.Intent)
	}

	res, err := s.callModel(ctx, conv, req)
	if err != nil {
		return "", err
	}

	if res.IsQuery && !fetched {
		intent := res.Intent
		req.Intent = intent
		req.QueryContext = s.loadQueryContext(ctx, userID, intent)
		if req.QueryContext != "" {
			if res, err = s.callModel(ctx, conv, req); err != nil {
				return "", err
			}
			res.Intent, res.IsQuery = intent, true
		}
	}

	resp.IntentType = string(res.Intent)
	resp.IsQuery = res.IsQuery

	if res.IsQuery {
		if req.QueryContext == "" {
			return noRecordsReply, nil
		}
		return res.Reply, nil
	}
	if res.Fields == nil {
		return res.Reply, nil
	}

	switch {
	case res.Fields.Transaction != nil:
		pending, err := s.staging.Stage(ctx, conv, res.Fields.Transaction)
		var invalid *domain.ErrValidation
		if errors.As(err, &invalid) {
			return fmt.Sprintf("I couldn't understand the %s you gave. Could you restate it?", invalid.Field), nil
		}
		if err != nil {
			return "", err
		}
		id := pending.ID.String()
		resp.PendingTransactionID = &id
		reply := res.Reply
		if !strings.Contains(reply, recordPrompt) {
			reply = strings.TrimSpace(reply) + "\n\n" + recordPrompt
		}
		return reply, nil

	case res.Fields.Party != nil:
		name, created, err := s.parties.Upsert(ctx, userID, res.Fields.Party)
		if err != nil {
			return "", err
		}
		s.logger.Info("Party recorded from chat",
			zap.String("kind", string(res.Fields.Party.Kind)),
			zap.String("name", name),
			zap.Bool("created", created),
		)
		return res.Reply, nil
	}
	return res.Reply, nil
}

func (s *ChatService) callModel(ctx context.Context, conv *models.Conversation, req llm.Request) (*llm.Result, error) {
	res, err := s.classifier.Classify(ctx, req)
	if err == nil {
		return res, nil
	}
	s.logger.Error("Classification failed", zap.Error(err), zap.String("conversation_id", conv.ID.String()))
	var ext *domain.ErrExternalService
	if errors.As(err, &ext) {
		return nil, err
	}
	return nil, &domain.ErrExternalService{Service: "llm", Err: err}
}

// loadQueryContext is queryContext with lookup failures degraded to "".
func (s *ChatService) loadQueryContext(ctx context.Context, userID uuid.UUID, intent models.Intent) string {
	queryContext, err := s.queryContext(ctx, userID, intent)
	if err != nil {
		s.logger.Warn("Query context unavailable", zap.Error(err), zap.String("user_id", userID.String()))
		return ""
	}
	return queryContext
}

// queryContext renders the user's records for the detected entity. An empty
// result yields "".
func (s *ChatService) queryContext(ctx context.Context, userID uuid.UUID, intent models.Intent) (string, error) {
	switch intent {
	case models.IntentCustomer:
		customers, err := s.ledger.Customers().List(ctx, userID, nil)
		if err != nil || len(customers) == 0 {
			return "", err
		}
		contacts := make([]models.Contact, 0, len(customers))
		for _, c := range customers {
			contacts = append(contacts, c.Contact)
		}
		return llm.PartyContext(contacts), nil

	case models.IntentVendor:
		vendors, err := s.ledger.Vendors().List(ctx, userID, nil)
		if err != nil || len(vendors) == 0 {
			return "", err
		}
		contacts := make([]models.Contact, 0, len(vendors))
		for _, v := range vendors {
			contacts = append(contacts, v.Contact)
		}
		return llm.PartyContext(contacts), nil
	}

	txs, err := s.ledger.Transactions().List(ctx, repository.TransactionFilter{UserID: userID, Limit: queryContextLimit})
	if err != nil || len(txs) == 0 {
		return "", err
	}
	names, err := s.partyNames(ctx, userID)
	if err != nil {
		return "", err
	}
	return llm.TransactionContext(txs, names), nil
}

func (s *ChatService) partyNames(ctx context.Context, userID uuid.UUID) (map[uuid.UUID]string, error) {
	customers, err := s.ledger.Customers().List(ctx, userID, nil)
	if err != nil {
		return nil, err
	}
	vendors, err := s.ledger.Vendors().List(ctx, userID, nil)
	if err != nil {
		return nil, err
	}
	names := make(map[uuid.UUID]string, len(customers)+len(vendors))
	for _, c := range customers {
		names[c.ID] = c.Name
	}
	for _, v := range vendors {
		names[v.ID] = v.Name
	}
	return names, nil
}

func (s *ChatService) appendMessage(ctx context.Context, conversationID uuid.UUID, sender models.Sender, content string) error {
	return appendMessage(ctx, s.ledger, conversationID, sender, content)
}

func (s *ChatService) ListConversations(ctx context.Context, userID uuid.UUID) ([]dto.ConversationResponse, error) {
	convs, err := s.ledger.Conversations().ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]dto.ConversationResponse, 0, len(convs))
	for _, c := range convs {
		out = append(out, dto.ToConversationResponse(c))
	}
	return out, nil
}

func (s *ChatService) ListMessages(ctx context.Context, userID, conversationID uuid.UUID) ([]dto.MessageResponse, error) {
	if _, err := s.ledger.Conversations().Get(ctx, conversationID, userID); err != nil {
		return nil, err
	}
	msgs, err := s.ledger.Conversations().Messages(ctx, conversationID, 0)
	if err != nil {
		return nil, err
	}
	out := make([]dto.MessageResponse, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, dto.ToMessageResponse(m))
	}
	return out, nil
}
