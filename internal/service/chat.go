package service

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_chat_service.go -package=mocks -mock_names=ChatService=MockChatService gilda/internal/service ChatService

import (
	"context"
	"errors"
	"strings"

	"gilda/internal/contextutil"
	"gilda/internal/llm"
	"gilda/internal/rag"
	"gilda/internal/share"
	"gilda/internal/storage"
)

// ApologyMessage is the assistant reply when the model cannot be reached.
const ApologyMessage = "I'm sorry, I encountered an error while processing your request. Please try again later."

// ShareNotFoundMessage answers requests made through an unknown or expired share link.
const ShareNotFoundMessage = "I couldn't find that. This shared link does not exist or has expired."

// ChatRequest represents a chat request in the domain layer.
type ChatRequest struct {
	// OwnerID is the authenticated owner. Ignored when ShareID is set.
	OwnerID string
	// ShareID answers from the documents behind a share link.
	ShareID string
	Message string
	History []llm.Message
}

// ChatResponse represents a chat response in the domain layer.
type ChatResponse struct {
	Message   string
	History   []llm.Message // Request history plus this exchange
	Sources   []rag.Match
	DeepLinks []rag.DeepLink
}

// LookupRequest asks for details about a deep-linked entity.
type LookupRequest struct {
	OwnerID string
	ShareID string
	Query   string
}

// LookupResponse is the detail answer for a deep link.
type LookupResponse struct {
	Details string
	Sources []rag.Match
}

// ChatService provides chat functionality.
type ChatService interface {
	// ProcessChat answers a message from the owner's (or share's) documents.
	ProcessChat(ctx context.Context, req ChatRequest) (ChatResponse, error)
	// StreamChat is ProcessChat delivering the answer through callback as it is generated.
	StreamChat(ctx context.Context, req ChatRequest, callback func(chunk string) error) (ChatResponse, error)
	// Lookup expands a deep link.
	Lookup(ctx context.Context, req LookupRequest) (LookupResponse, error)
}

// chatService implements ChatService.
type chatService struct {
	engine  rag.Engine
	shares  share.Store
	history storage.HistoryStore
}

// NewChatService creates a new ChatService. history may be nil to disable auditing.
func NewChatService(engine rag.Engine, shares share.Store, history storage.HistoryStore) ChatService {
	return &chatService{
		engine:  engine,
		shares:  shares,
		history: history,
	}
}

// scope is the owner whose documents answer a request.
type scope struct {
	ownerID  string
	shareID  string
	fallback string
	// missing is set when the share id resolves to nothing.
	missing bool
}

func (s *chatService) resolveScope(ctx context.Context, ownerID, shareID string) (scope, error) {
	if shareID == "" {
		if ownerID == "" {
			return scope{}, ErrUnauthorized
		}
		return scope{ownerID: ownerID}, nil
	}
	if s.shares == nil {
		return scope{shareID: shareID, missing: true}, nil
	}

	rec, err := s.shares.Get(ctx, shareID)
	if errors.Is(err, share.ErrNotFound) {
		contextutil.LoggerFromContext(ctx).InfoContext(ctx, "share not found", "share_id", shareID)
		return scope{shareID: shareID, missing: true}, nil
	}
	if err != nil {
		return scope{}, classify(err, "failed to load share")
	}
	return scope{ownerID: rec.OwnerID, shareID: rec.ID, fallback: rec.Content}, nil
}

// ProcessChat processes a chat request.
func (s *chatService) ProcessChat(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	return s.chat(ctx, req, nil)
}

// StreamChat processes a chat request and streams the response.
func (s *chatService) StreamChat(ctx context.Context, req ChatRequest, callback func(chunk string) error) (ChatResponse, error) {
	if callback == nil {
		return ChatResponse{}, errors.New("callback is required")
	}
	return s.chat(ctx, req, callback)
}

func (s *chatService) chat(ctx context.Context, req ChatRequest, callback func(chunk string) error) (ChatResponse, error) {
	logger := contextutil.LoggerFromContext(ctx)

	// Business validation
	message := strings.TrimSpace(req.Message)
	if message == "" {
		logger.WarnContext(ctx, "empty message in chat request")
		return ChatResponse{}, &ValidationError{
			Field:   "message",
			Message: "cannot be empty",
		}
	}

	sc, err := s.resolveScope(ctx, req.OwnerID, req.ShareID)
	if err != nil {
		return ChatResponse{}, err
	}
	if sc.missing {
		if callback != nil {
			if err := callback(ShareNotFoundMessage); err != nil {
				return ChatResponse{}, err
			}
		}
		return ChatResponse{
			Message: ShareNotFoundMessage,
			History: appendExchange(req.History, message, ShareNotFoundMessage),
		}, nil
	}

	askReq := rag.AskRequest{
		OwnerID:      sc.ownerID,
		Message:      message,
		History:      req.History,
		FallbackText: sc.fallback,
	}

	var resp rag.AskResponse
	streamed := false
	if callback != nil {
		resp, err = s.engine.StreamAsk(ctx, askReq, func(chunk string) error {
			streamed = true
			return callback(chunk)
		})
	} else {
		resp, err = s.engine.Ask(ctx, askReq)
	}

	var genErr *llm.GenerationServiceError
	switch {
	case err == nil:
	case errors.As(err, &genErr):
		logger.ErrorContext(ctx, "failed to generate answer", "error", err, "status", genErr.StatusCode)
		resp.Answer = ApologyMessage
		resp.DeepLinks = nil
		if callback != nil && !streamed {
			if cbErr := callback(ApologyMessage); cbErr != nil {
				return ChatResponse{}, cbErr
			}
		}
	case errors.Is(err, rag.ErrEmptyQuestion):
		return ChatResponse{}, &ValidationError{Field: "message", Message: "cannot be empty"}
	default:
		logger.ErrorContext(ctx, "failed to answer chat request", "error", err)
		return ChatResponse{}, classify(err, "failed to answer question")
	}

	s.audit(ctx, sc, message, resp.Answer)

	logger.InfoContext(ctx, "chat request processed successfully",
		"message_length", len(message),
		"reply_length", len(resp.Answer),
		"context_source", resp.ContextSource,
		"shared", sc.shareID != "",
	)
	return ChatResponse{
		Message:   resp.Answer,
		History:   appendExchange(req.History, message, resp.Answer),
		Sources:   resp.Sources,
		DeepLinks: resp.DeepLinks,
	}, nil
}

// appendExchange returns a copy of history followed by the user message and the answer.
func appendExchange(history []llm.Message, message, answer string) []llm.Message {
	out := make([]llm.Message, 0, len(history)+2)
	out = append(out, history...)
	return append(out,
		llm.Message{Role: llm.RoleUser, Content: message},
		llm.Message{Role: llm.RoleAssistant, Content: answer},
	)
}

// audit records the exchange. Failures are logged and never fail the request.
func (s *chatService) audit(ctx context.Context, sc scope, question, answer string) {
	if s.history == nil {
		return
	}
	err := s.history.Append(ctx,
		storage.ChatTurn{OwnerID: sc.ownerID, ShareID: sc.shareID, Role: llm.RoleUser, Content: question},
		storage.ChatTurn{OwnerID: sc.ownerID, ShareID: sc.shareID, Role: llm.RoleAssistant, Content: answer},
	)
	if err != nil {
		contextutil.LoggerFromContext(ctx).WarnContext(ctx, "failed to record chat history", "error", err)
	}
}

// Lookup expands a deep link.
func (s *chatService) Lookup(ctx context.Context, req LookupRequest) (LookupResponse, error) {
	logger := contextutil.LoggerFromContext(ctx)

	query := strings.TrimSpace(req.Query)
	if query == "" {
		return LookupResponse{}, &ValidationError{Field: "query", Message: "cannot be empty"}
	}

	sc, err := s.resolveScope(ctx, req.OwnerID, req.ShareID)
	if err != nil {
		return LookupResponse{}, err
	}
	if sc.missing {
		return LookupResponse{Details: ShareNotFoundMessage}, nil
	}

	resp, err := s.engine.Lookup(ctx, rag.LookupRequest{
		OwnerID:      sc.ownerID,
		Query:        query,
		FallbackText: sc.fallback,
	})
	if err != nil {
		logger.ErrorContext(ctx, "failed to look up details", "query", query, "error", err)
		return LookupResponse{}, classify(err, "failed to look up details")
	}

	return LookupResponse{Details: resp.Details, Sources: resp.Sources}, nil
}
