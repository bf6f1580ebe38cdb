// Package chat runs a single chat turn: pick a tool, stream the answer,
// add related questions and persist the transcript
package chat

import (
	"context"
	"errors"
	"time"

	"bitwise74/labyrinth-api/llm"
	"bitwise74/labyrinth-api/model"
	"bitwise74/labyrinth-api/validators"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	SaveFailedText = "Note: Your chat history could not be saved due to a technical issue."

	systemPrompt = `You are a helpful AI assistant with access to real-time web search, content retrieval and stock data.
Answer the user's question accurately and concisely in markdown. When tool results are provided, base your answer on them and cite sources as [number](url).
If no tool result is given, answer from your own knowledge and say so when you are unsure.`
)

var (
	ErrNoID        = errors.New("chat id is required")
	ErrNoMessages  = errors.New("at least one message is required")
	ErrLastNotUser = errors.New("last message must be from the user")
)

// Emitter receives the parts of a turn as they are produced
type Emitter interface {
	Text(delta string) error
	Annotation(a model.Annotation) error
}

type Searcher interface {
	Search(ctx context.Context, req validators.SearchRequest) *model.SearchResults
	Retrieve(ctx context.Context, url string) *model.SearchResults
}

type StockCharter interface {
	Chart(ctx context.Context, symbols []string, interval string) *model.StockResult
}

type QuestionGenerator interface {
	Generate(ctx context.Context, content string) ([]model.RelatedQuestion, error)
}

type Store interface {
	GetChat(ctx context.Context, id, userID string) (*model.Chat, error)
	SaveChat(ctx context.Context, chat *model.Chat, userID string) error
}

type Request struct {
	ID          string          `json:"id"`
	Messages    []model.Message `json:"messages"`
	SearchMode  bool            `json:"search_mode"`
	SkipRelated bool            `json:"skip_related"`

	// Set by the server, never read from the body
	StockMode bool   `json:"-"`
	UserID    string `json:"-"`
}

func Validate(req *Request) error {
	if req.ID == "" {
		return ErrNoID
	}

	if len(req.Messages) == 0 {
		return ErrNoMessages
	}

	if req.Messages[len(req.Messages)-1].Role != model.RoleUser {
		return ErrLastNotUser
	}

	return nil
}

type Deps struct {
	Chat        llm.ChatModel
	Planner     llm.JSONModel
	Search      Searcher
	Stock       StockCharter
	Related     QuestionGenerator
	Store       Store
	SaveHistory bool
}

type Orchestrator struct {
	chat        llm.ChatModel
	planner     llm.JSONModel
	search      Searcher
	stock       StockCharter
	related     QuestionGenerator
	store       Store
	saveHistory bool

	now   func() time.Time
	newID func() string
}

func New(d Deps) *Orchestrator {
	return &Orchestrator{
		chat:        d.Chat,
		planner:     d.Planner,
		search:      d.Search,
		stock:       d.Stock,
		related:     d.Related,
		store:       d.Store,
		saveHistory: d.SaveHistory,
		now:         time.Now,
		newID:       uuid.NewString,
	}
}

// Run executes one turn. Only a failing answer stream or a gone client end
// the turn with an error, everything after the answer degrades instead.
func (o *Orchestrator) Run(ctx context.Context, req Request, em Emitter) error {
	if err := Validate(&req); err != nil {
		return err
	}

	question := req.Messages[len(req.Messages)-1].Content

	inv := o.runTool(ctx, &req, o.planTool(ctx, &req, question), question)

	var transcript []model.Message
	transcript = append(transcript, req.Messages...)

	if inv != nil {
		a := model.Annotation{Type: model.AnnotationToolCall, Data: inv}
		if err := em.Annotation(a); err != nil {
			return err
		}

		transcript = append(transcript, model.Message{ID: o.newID(), Role: model.RoleData, Data: &a})
	}

	var emitErr error
	answer, err := o.chat.StreamChat(ctx, systemPrompt+toolContext(inv), toLLMMessages(req.Messages), func(d string) {
		if emitErr == nil {
			emitErr = em.Text(d)
		}
	})
	if err != nil {
		return err
	}
	if emitErr != nil {
		return emitErr
	}

	if !req.SkipRelated && o.related != nil {
		if a, ok := o.relatedQuestions(ctx, &req, answer, em); ok {
			transcript = append(transcript, model.Message{ID: o.newID(), Role: model.RoleData, Data: &a})
		}
	}

	assistant := model.Message{ID: o.newID(), Role: model.RoleAssistant, Content: answer}
	if inv != nil {
		assistant.ToolInvocations = []model.ToolInvocation{*inv}
	}
	transcript = append(transcript, assistant)

	o.persist(ctx, &req, transcript, em)

	return nil
}

func (o *Orchestrator) relatedQuestions(ctx context.Context, req *Request, answer string, em Emitter) (model.Annotation, bool) {
	placeholder := model.Annotation{
		Type: model.AnnotationRelatedQuestions,
		Data: model.RelatedQuestions{Items: []model.RelatedQuestion{}},
	}
	if err := em.Annotation(placeholder); err != nil {
		return model.Annotation{}, false
	}

	items, err := o.related.Generate(ctx, answer)
	if err != nil {
		zap.L().Warn("Failed to generate related questions", zap.String("chatID", req.ID), zap.Error(err))
		return model.Annotation{}, false
	}

	a := model.Annotation{
		Type: model.AnnotationRelatedQuestions,
		Data: model.RelatedQuestions{Items: items},
	}
	if err := em.Annotation(a); err != nil {
		return model.Annotation{}, false
	}

	return a, true
}

func (o *Orchestrator) persist(ctx context.Context, req *Request, transcript []model.Message, em Emitter) {
	if !o.saveHistory || req.UserID == "" || o.store == nil {
		return
	}

	err := func() error {
		chat, err := o.store.GetChat(ctx, req.ID, req.UserID)
		if err != nil {
			return err
		}

		if chat == nil {
			chat = &model.Chat{
				ID:        req.ID,
				Title:     req.Messages[0].Content,
				Path:      "/search/" + req.ID,
				CreatedAt: o.now(),
			}
		}

		chat.Messages = transcript
		return o.store.SaveChat(ctx, chat, req.UserID)
	}()
	if err == nil {
		return
	}

	zap.L().Error("Failed to save chat history", zap.String("chatID", req.ID), zap.Error(err))

	_ = em.Annotation(model.Annotation{Type: model.AnnotationSystemMessage, Text: SaveFailedText})
}

func toLLMMessages(msgs []model.Message) []llm.Message {
	out := make([]llm.Message, 0, len(msgs))
	for _, m := range msgs {
		if m.Role != model.RoleUser && m.Role != model.RoleAssistant {
			continue
		}

		if m.Content == "" {
			continue
		}

		out = append(out, llm.Message{Role: m.Role, Content: m.Content})
	}

	return out
}
