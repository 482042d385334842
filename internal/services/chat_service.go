package services

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"gorm.io/datatypes"

	"nativeai_backend/internal/ai"
	"nativeai_backend/internal/logger"
	"nativeai_backend/internal/models"
	"nativeai_backend/internal/repositories"
	"nativeai_backend/internal/services/dto"
	"nativeai_backend/pkg/apperrors"
)

const (
	// History window sent upstream per request.
	historyLimit = 40

	deepSearchInstruction = "Deep Search mode: analyse the question in more depth, structure your answer, and if necessary ask one or two clarifying questions before concluding. Do not invent external sources."
	reasonInstruction     = "Reason mode: give a structured answer and include only the key points of the reasoning, not a detailed chain of thought."
)

// ChatConfig carries the upstream call parameters.
type ChatConfig struct {
	Model        string
	SystemPrompt string
	Temperature  float64
	CallTimeout  time.Duration
}

// ChatService runs the quota-gated chat flow and owns conversation
// persistence.
type ChatService interface {
	SendMessage(ctx context.Context, userID string, req *dto.SendMessageRequest) (*dto.ChatReplyResponse, error)

	ListConversations(userID string, limit, offset int) (*dto.ConversationListResponse, error)
	GetConversation(userID, conversationID string) (*dto.ConversationDetailResponse, error)
	DeleteConversation(userID, conversationID string) error
}

type chatService struct {
	provider         ai.Provider
	quota            QuotaService
	conversationRepo repositories.ConversationRepository
	cfg              ChatConfig
}

func NewChatService(
	provider ai.Provider,
	quota QuotaService,
	conversationRepo repositories.ConversationRepository,
	cfg ChatConfig,
) ChatService {
	if cfg.CallTimeout == 0 {
		cfg.CallTimeout = 60 * time.Second
	}
	return &chatService{
		provider:         provider,
		quota:            quota,
		conversationRepo: conversationRepo,
		cfg:              cfg,
	}
}

// SendMessage is the quota gate around the costly upstream call:
//
//  1. admission check (fail closed on any read error),
//  2. the AI completion under a bounded timeout,
//  3. on success only, record the billed token cost exactly once.
//
// A failed or cancelled upstream call records no usage, since nothing
// was billed for it.
func (s *chatService) SendMessage(ctx context.Context, userID string, req *dto.SendMessageRequest) (*dto.ChatReplyResponse, error) {
	conversation, history, err := s.loadOrCreateConversation(userID, req)
	if err != nil {
		return nil, err
	}

	periodKey, err := s.quota.CheckAdmission(ctx, userID)
	if err != nil {
		return nil, err
	}

	messages := s.buildMessages(history, req)

	callCtx, cancel := context.WithTimeout(ctx, s.cfg.CallTimeout)
	defer cancel()

	temperature := s.cfg.Temperature
	resp, err := s.provider.ChatCompletion(callCtx, ai.ChatRequest{
		Model:       s.cfg.Model,
		Messages:    messages,
		Temperature: &temperature,
	})
	if err != nil {
		logger.CtxWithError(ctx, "upstream completion failed", err,
			"provider", s.provider.Name(), "conversation_id", conversation.ID)
		return nil, apperrors.ErrUpstreamProvider(err)
	}

	s.persistExchange(ctx, conversation, req.Content, resp)

	if _, err := s.quota.RecordUsage(ctx, userID, periodKey, resp.Usage.TotalTokens); err != nil {
		// The reply was already produced and billed upstream; losing the
		// write-back under-counts usage but must not fail the user request.
		logger.CtxWithError(ctx, "failed to record token usage", err,
			"period", periodKey, "tokens", resp.Usage.TotalTokens)
	}

	return &dto.ChatReplyResponse{
		ConversationID: conversation.ID,
		Reply:          resp.Content,
		Model:          resp.Model,
		Usage: dto.UsageInfo{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}

func (s *chatService) loadOrCreateConversation(userID string, req *dto.SendMessageRequest) (*models.Conversation, []models.Message, error) {
	if req.ConversationID == "" {
		conversation := &models.Conversation{
			UserID: userID,
			Title:  titleFromPrompt(req.Content),
		}
		if err := s.conversationRepo.Create(conversation); err != nil {
			return nil, nil, apperrors.ErrStorageUnavailable(err)
		}
		return conversation, nil, nil
	}

	conversation, err := s.conversationRepo.FindByID(req.ConversationID)
	if err != nil {
		if err == repositories.ErrConversationNotFound {
			return nil, nil, apperrors.ErrNotFound(err)
		}
		return nil, nil, apperrors.ErrStorageUnavailable(err)
	}
	if conversation.UserID != userID {
		// Do not reveal that the conversation exists.
		return nil, nil, apperrors.ErrNotFound(repositories.ErrConversationNotFound)
	}

	history, err := s.conversationRepo.FindMessages(conversation.ID, historyLimit, 0)
	if err != nil {
		return nil, nil, apperrors.ErrStorageUnavailable(err)
	}

	return conversation, history, nil
}

func (s *chatService) buildMessages(history []models.Message, req *dto.SendMessageRequest) []ai.Message {
	messages := []ai.Message{{Role: ai.RoleSystem, Content: s.cfg.SystemPrompt}}

	var modes []string
	if req.DeepSearch {
		modes = append(modes, deepSearchInstruction)
	}
	if req.Reason {
		modes = append(modes, reasonInstruction)
	}
	if len(modes) > 0 {
		messages = append(messages, ai.Message{Role: ai.RoleSystem, Content: strings.Join(modes, "\n")})
	}

	for _, m := range history {
		messages = append(messages, ai.Message{Role: string(m.Role), Content: m.Content})
	}

	messages = append(messages, ai.Message{Role: ai.RoleUser, Content: req.Content})
	return messages
}

// persistExchange stores the user prompt and the assistant reply. Persistence
// failures are logged, not surfaced: the reply was produced and billed.
func (s *chatService) persistExchange(ctx context.Context, conversation *models.Conversation, prompt string, resp ai.ChatResponse) {
	userMsg := &models.Message{
		ConversationID: conversation.ID,
		Role:           models.MessageRoleUser,
		Content:        prompt,
	}
	if err := s.conversationRepo.CreateMessage(userMsg); err != nil {
		logger.CtxWithError(ctx, "failed to persist user message", err, "conversation_id", conversation.ID)
		return
	}

	metadata, _ := json.Marshal(map[string]interface{}{
		"model":             resp.Model,
		"prompt_tokens":     resp.Usage.PromptTokens,
		"completion_tokens": resp.Usage.CompletionTokens,
		"total_tokens":      resp.Usage.TotalTokens,
	})

	assistantMsg := &models.Message{
		ConversationID: conversation.ID,
		Role:           models.MessageRoleAssistant,
		Content:        resp.Content,
		Metadata:       datatypes.JSON(metadata),
	}
	if err := s.conversationRepo.CreateMessage(assistantMsg); err != nil {
		logger.CtxWithError(ctx, "failed to persist assistant message", err, "conversation_id", conversation.ID)
	}
}

func titleFromPrompt(prompt string) string {
	title := strings.TrimSpace(prompt)
	title = strings.ReplaceAll(title, "\n", " ")
	if runes := []rune(title); len(runes) > 80 {
		title = string(runes[:80])
	}
	return title
}

// --- Conversation CRUD ---

func (s *chatService) ListConversations(userID string, limit, offset int) (*dto.ConversationListResponse, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	conversations, total, err := s.conversationRepo.FindByUser(userID, limit, offset)
	if err != nil {
		return nil, apperrors.ErrStorageUnavailable(err)
	}

	resp := &dto.ConversationListResponse{Total: total}
	for _, c := range conversations {
		resp.Conversations = append(resp.Conversations, dto.ConversationResponse{
			ID:        c.ID,
			Title:     c.Title,
			CreatedAt: c.CreatedAt,
			UpdatedAt: c.UpdatedAt,
		})
	}
	return resp, nil
}

func (s *chatService) GetConversation(userID, conversationID string) (*dto.ConversationDetailResponse, error) {
	conversation, err := s.ownedConversation(userID, conversationID)
	if err != nil {
		return nil, err
	}

	messages, err := s.conversationRepo.FindMessages(conversationID, 500, 0)
	if err != nil {
		return nil, apperrors.ErrStorageUnavailable(err)
	}

	resp := &dto.ConversationDetailResponse{
		Conversation: dto.ConversationResponse{
			ID:        conversation.ID,
			Title:     conversation.Title,
			CreatedAt: conversation.CreatedAt,
			UpdatedAt: conversation.UpdatedAt,
		},
	}
	for _, m := range messages {
		resp.Messages = append(resp.Messages, dto.MessageResponse{
			ID:        m.ID,
			Role:      string(m.Role),
			Content:   m.Content,
			CreatedAt: m.CreatedAt,
		})
	}
	return resp, nil
}

func (s *chatService) DeleteConversation(userID, conversationID string) error {
	if _, err := s.ownedConversation(userID, conversationID); err != nil {
		return err
	}

	if err := s.conversationRepo.Delete(conversationID); err != nil {
		if err == repositories.ErrConversationNotFound {
			return apperrors.ErrNotFound(err)
		}
		return apperrors.ErrStorageUnavailable(err)
	}
	return nil
}

func (s *chatService) ownedConversation(userID, conversationID string) (*models.Conversation, error) {
	conversation, err := s.conversationRepo.FindByID(conversationID)
	if err != nil {
		if err == repositories.ErrConversationNotFound {
			return nil, apperrors.ErrNotFound(err)
		}
		return nil, apperrors.ErrStorageUnavailable(err)
	}
	if conversation.UserID != userID {
		return nil, apperrors.ErrNotFound(repositories.ErrConversationNotFound)
	}
	return conversation, nil
}
