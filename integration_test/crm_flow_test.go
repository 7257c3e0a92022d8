package integration_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"gitlab.com/timkado/api/daisi-wa-crm/internal/api"
	"gitlab.com/timkado/api/daisi-wa-crm/internal/auth"
	"gitlab.com/timkado/api/daisi-wa-crm/internal/config"
	"gitlab.com/timkado/api/daisi-wa-crm/internal/dispatch"
	"gitlab.com/timkado/api/daisi-wa-crm/internal/ingestion"
	"gitlab.com/timkado/api/daisi-wa-crm/internal/ingestion/handler"
	"gitlab.com/timkado/api/daisi-wa-crm/internal/jetstream"
	"gitlab.com/timkado/api/daisi-wa-crm/internal/model"
	"gitlab.com/timkado/api/daisi-wa-crm/internal/realtime"
	"gitlab.com/timkado/api/daisi-wa-crm/internal/storage"
	"gitlab.com/timkado/api/daisi-wa-crm/internal/usecase"
	"gitlab.com/timkado/api/daisi-wa-crm/pkg/logger"
)

const (
	jwtSecret   = "integration-secret"
	sessionName = "Sessao_01"
	mariaPhone  = "5511999990000"
)

// tenantFixture is one seeded company.
type tenantFixture struct {
	CompanyID string
	UserID    string
	Token     string
	StepIDs   []string
}

// CRMIntegrationSuite runs the whole service in-process against real Postgres and NATS.
type CRMIntegrationSuite struct {
	BaseIntegrationSuite

	repo     *storage.PostgresRepo
	js       *jetstream.Client
	sender   *recordingSender
	worker   *dispatch.Worker
	emitter  *realtime.PoolEmitter
	server   *httptest.Server
	workerCx context.CancelFunc

	tenantA tenantFixture
	tenantB tenantFixture
}

func (s *CRMIntegrationSuite) SetupSuite() {
	s.BaseIntegrationSuite.SetupSuite()

	cfg := &config.Config{}
	cfg.NATS.URL = s.NATSURL
	cfg.NATS.Dispatch = config.DispatchConfig{
		Stream:          "WA_CRM_DISPATCH_IT",
		Subject:         "v1.dispatch.send",
		Consumer:        "wa-crm-dispatcher-it",
		MaxDeliver:      3,
		NakBaseDelay:    200 * time.Millisecond,
		NakMaxDelay:     time.Second,
		AckWait:         30 * time.Second,
		MaxAckPending:   100,
		MaxAgeDays:      1,
		DuplicateWindow: 2 * time.Minute,
		FetchBatch:      10,
	}
	cfg.WorkerPools.Dispatch = config.WorkerPoolConfig{PoolSize: 4, QueueSize: 100, ExpiryTime: time.Minute}
	cfg.WorkerPools.Realtime = config.WorkerPoolConfig{PoolSize: 4, QueueSize: 100, ExpiryTime: time.Minute}

	var err error
	s.repo, err = storage.NewPostgresRepo(s.PostgresDSN, true, 10)
	s.Require().NoError(err)

	s.js, err = jetstream.NewClient(s.NATSURL, "wa-crm-integration")
	s.Require().NoError(err)
	s.Require().NoError(dispatch.Setup(s.Ctx, s.js, cfg.NATS.Dispatch))

	hub := realtime.NewHub()
	s.emitter, err = realtime.NewPoolEmitter(cfg.WorkerPools.Realtime, hub.Broadcast)
	s.Require().NoError(err)

	service := usecase.NewCRMService(
		storage.NewContactRepoAdapter(s.repo),
		storage.NewChannelAccountRepoAdapter(s.repo),
		storage.NewFunnelRepoAdapter(s.repo),
		storage.NewTicketRepoAdapter(s.repo),
		storage.NewMessageRepoAdapter(s.repo),
		storage.NewUserRepoAdapter(s.repo),
		s.emitter,
		dispatch.NewPublisher(s.js, cfg.NATS.Dispatch),
	)

	s.sender = &recordingSender{}
	s.worker, err = dispatch.NewWorker(cfg, logger.Log, s.js, s.sender, service,
		storage.NewExhaustedDispatchRepoAdapter(s.repo))
	s.Require().NoError(err)

	var workerCtx context.Context
	workerCtx, s.workerCx = context.WithCancel(s.Ctx)
	go func() { _ = s.worker.Start(workerCtx) }()

	verifier, err := auth.NewVerifier(jwtSecret)
	s.Require().NoError(err)

	webhooks := handler.NewWebhookHandler(service)
	router := ingestion.NewRouter()
	router.Register(model.WebhookMessagesUpsert, webhooks.HandleEvent)
	router.Register(model.WebhookConnectionUpdate, webhooks.HandleEvent)
	router.RegisterDefault(webhooks.HandleUnknown)

	s.server = httptest.NewServer(api.NewRouter(api.Routes{
		API:      api.NewHandler(service),
		Webhooks: ingestion.NewWebhookServer(router),
		Realtime: realtime.NewHandler(hub, verifier, s.emitter, realtime.Options{SendBuffer: 64, WriteWait: 5 * time.Second, PongWait: 30 * time.Second}),
		Verifier: verifier,
	}))
}

func (s *CRMIntegrationSuite) TearDownSuite() {
	if s.server != nil {
		s.server.Close()
	}
	if s.workerCx != nil {
		s.workerCx()
		s.worker.Stop()
	}
	if s.emitter != nil {
		s.emitter.Release()
	}
	if s.js != nil {
		s.js.Close()
	}
	if s.repo != nil {
		_ = s.repo.Close(context.Background())
	}
	s.BaseIntegrationSuite.TearDownSuite()
}

func (s *CRMIntegrationSuite) SetupTest() {
	s.Require().NoError(truncateTables(s.Ctx, s.PostgresDSN))
	s.sender.setFailing(false)

	s.tenantA = s.seedTenant("alpha", sessionName)
	s.tenantB = s.seedTenant("beta", "Sessao_B1")
}

func (s *CRMIntegrationSuite) seedTenant(slug, session string) tenantFixture {
	companyID := uuid.NewString()
	user := model.NewUser(&model.User{CompanyID: companyID, Role: model.UserRoleAgent})
	funnel := model.NewFunnel(companyID, "Novo", "Qualificando", "Proposta", "Fechado")

	s.Require().NoError(s.repo.SeedTenant(s.Ctx, storage.TenantSeed{
		Company:  model.Company{ID: companyID, Slug: slug, Name: slug},
		Users:    []model.User{*user},
		Accounts: []model.ChannelAccount{*model.NewChannelAccount(&model.ChannelAccount{CompanyID: companyID, SessionName: session})},
		Funnel:   *funnel,
	}))

	token, err := auth.Sign(jwtSecret, user.ID, companyID, time.Hour)
	s.Require().NoError(err)

	steps := make([]string, 0, len(funnel.Steps))
	for _, step := range funnel.Steps {
		steps = append(steps, step.ID)
	}
	return tenantFixture{CompanyID: companyID, UserID: user.ID, Token: token, StepIDs: steps}
}

// --- helpers ---

func (s *CRMIntegrationSuite) postWebhook(event string, payload interface{}) {
	body, err := json.Marshal(payload)
	s.Require().NoError(err)
	resp, err := http.Post(s.server.URL+"/webhook/"+event, "application/json", bytes.NewReader(body))
	s.Require().NoError(err)
	defer resp.Body.Close()
	s.Require().Equal(http.StatusOK, resp.StatusCode)
}

func (s *CRMIntegrationSuite) apiRequest(token, method, path string, body interface{}) *http.Response {
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, s.server.URL+path, reader)
	s.Require().NoError(err)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	s.T().Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func (s *CRMIntegrationSuite) inbound(externalID, text string) *model.MessagesUpsertPayload {
	p := model.NewMessagesUpsertPayload(sessionName)
	p.Key.ID = externalID
	p.Key.RemoteJid = mariaPhone + "@s.whatsapp.net"
	p.PushName = "Maria"
	p.Message = &model.WebhookMessageContent{Conversation: &text}
	return p
}

func (s *CRMIntegrationSuite) count(query string, args ...interface{}) int {
	n, err := countRows(s.Ctx, s.PostgresDSN, query, args...)
	s.Require().NoError(err)
	return n
}

func (s *CRMIntegrationSuite) ticketID(companyID string) string {
	id, err := queryString(s.Ctx, s.PostgresDSN, `SELECT id FROM tickets WHERE company_id = $1`, companyID)
	s.Require().NoError(err)
	return id
}

// --- tests ---

func (s *CRMIntegrationSuite) TestInboundConversation_CreatesContactTicketAndMessage() {
	s.postWebhook("messages-upsert", s.inbound("3EB0MARIA0001", "Oi, quero saber o preço"))

	a := s.tenantA.CompanyID
	s.Equal(1, s.count(`SELECT count(*) FROM contacts WHERE company_id = $1 AND phone = $2 AND name = 'Maria'`, a, mariaPhone))
	s.Equal(1, s.count(`SELECT count(*) FROM tickets WHERE company_id = $1 AND funnel_step_id = $2`, a, s.tenantA.StepIDs[0]))
	s.Equal(1, s.count(`SELECT count(*) FROM messages WHERE company_id = $1 AND external_id = '3EB0MARIA0001' AND status = 'RECEIVED'`, a))
	s.Equal(0, s.count(`SELECT count(*) FROM messages WHERE company_id = $1`, s.tenantB.CompanyID))
}

func (s *CRMIntegrationSuite) TestInboundRedelivery_IsDeduplicated() {
	payload := s.inbound("3EB0MARIA0002", "Oi")
	s.postWebhook("messages-upsert", payload)
	s.postWebhook("messages-upsert", payload)
	s.postWebhook("messages-upsert", s.inbound("3EB0MARIA0003", "Tudo bem?"))

	a := s.tenantA.CompanyID
	s.Equal(1, s.count(`SELECT count(*) FROM contacts WHERE company_id = $1`, a))
	s.Equal(1, s.count(`SELECT count(*) FROM tickets WHERE company_id = $1`, a))
	s.Equal(2, s.count(`SELECT count(*) FROM messages WHERE company_id = $1`, a))
}

func (s *CRMIntegrationSuite) TestConcurrentFirstContact_ResolvesOnce() {
	const deliveries = 8

	var wg sync.WaitGroup
	statuses := make([]int, deliveries)
	errs := make([]error, deliveries)
	for i := 0; i < deliveries; i++ {
		body, err := json.Marshal(s.inbound(fmt.Sprintf("3EB0RACE%04d", i), "Oi"))
		s.Require().NoError(err)

		wg.Add(1)
		go func(i int, body []byte) {
			defer wg.Done()
			resp, err := http.Post(s.server.URL+"/webhook/messages-upsert", "application/json", bytes.NewReader(body))
			if err != nil {
				errs[i] = err
				return
			}
			statuses[i] = resp.StatusCode
			_ = resp.Body.Close()
		}(i, body)
	}
	wg.Wait()

	for i := 0; i < deliveries; i++ {
		s.Require().NoError(errs[i])
		s.Equal(http.StatusOK, statuses[i], "delivery %d", i)
	}

	a := s.tenantA.CompanyID
	s.Equal(1, s.count(`SELECT count(*) FROM contacts WHERE company_id = $1 AND phone = $2`, a, mariaPhone))
	s.Equal(1, s.count(`SELECT count(*) FROM tickets t JOIN contacts c ON c.id = t.contact_id WHERE t.company_id = $1 AND c.phone = $2`, a, mariaPhone))
	s.Equal(deliveries, s.count(`SELECT count(*) FROM messages WHERE company_id = $1`, a))
}

func (s *CRMIntegrationSuite) TestUnknownSessionAndEchoes_AreDropped() {
	unknown := s.inbound("3EB0UNKNOWN01", "Oi")
	unknown.Instance = "Sessao_desconhecida"
	s.postWebhook("messages-upsert", unknown)

	echo := s.inbound("3EB0ECHO0001", "Sent from phone")
	echo.Key.FromMe = true
	s.postWebhook("messages-upsert", echo)

	s.Equal(0, s.count(`SELECT count(*) FROM messages`))
	s.Equal(0, s.count(`SELECT count(*) FROM contacts`))
}

func (s *CRMIntegrationSuite) TestConnectionUpdate_UpdatesChannelStatus() {
	s.postWebhook("connection-update", map[string]string{"instance": sessionName, "state": "open"})
	status, err := queryString(s.Ctx, s.PostgresDSN,
		`SELECT status FROM channel_accounts WHERE company_id = $1 AND session_name = $2`, s.tenantA.CompanyID, sessionName)
	s.Require().NoError(err)
	s.Equal("OPEN", status)
}

func (s *CRMIntegrationSuite) TestOutboundMessage_IsDispatched() {
	s.postWebhook("messages-upsert", s.inbound("3EB0MARIA0010", "Oi"))
	ticketID := s.ticketID(s.tenantA.CompanyID)

	resp := s.apiRequest(s.tenantA.Token, http.MethodPost, "/api/tickets/"+ticketID+"/messages",
		map[string]string{"content": "Olá Maria, segue a proposta"})
	s.Require().Equal(http.StatusCreated, resp.StatusCode)

	var msg model.Message
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&msg))
	s.Equal(model.MessageStatusPending, msg.Status)
	s.True(msg.FromMe)

	s.Eventually(func() bool {
		sent, _ := s.sender.snapshot()
		for _, req := range sent {
			if req.Text == "Olá Maria, segue a proposta" && req.SessionName == sessionName {
				return true
			}
		}
		return false
	}, 10*time.Second, 100*time.Millisecond)

	s.Eventually(func() bool {
		return s.count(`SELECT count(*) FROM messages WHERE id = $1 AND status = 'SENT'`, msg.ID) == 1
	}, 10*time.Second, 100*time.Millisecond)
}

func (s *CRMIntegrationSuite) TestOutboundMessage_ExhaustedAfterThreeAttempts() {
	s.postWebhook("messages-upsert", s.inbound("3EB0MARIA0020", "Oi"))
	ticketID := s.ticketID(s.tenantA.CompanyID)
	s.sender.setFailing(true)
	_, callsBefore := s.sender.snapshot()

	resp := s.apiRequest(s.tenantA.Token, http.MethodPost, "/api/tickets/"+ticketID+"/messages",
		map[string]string{"content": "Vai falhar"})
	s.Require().Equal(http.StatusCreated, resp.StatusCode)
	var msg model.Message
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&msg))

	s.Eventually(func() bool {
		return s.count(`SELECT count(*) FROM exhausted_dispatches WHERE message_id = $1 AND attempts = 3`, msg.ID) == 1
	}, 20*time.Second, 200*time.Millisecond)

	s.Equal(1, s.count(`SELECT count(*) FROM messages WHERE id = $1 AND status = 'FAILED'`, msg.ID))
	_, callsAfter := s.sender.snapshot()
	s.Equal(3, callsAfter-callsBefore)
}

func (s *CRMIntegrationSuite) TestTicketActions_AreTenantScoped() {
	s.postWebhook("messages-upsert", s.inbound("3EB0MARIA0030", "Oi"))
	ticketID := s.ticketID(s.tenantA.CompanyID)

	resp := s.apiRequest(s.tenantB.Token, http.MethodGet, "/api/tickets/"+ticketID+"/messages", nil)
	s.Equal(http.StatusNotFound, resp.StatusCode)

	resp = s.apiRequest(s.tenantA.Token, http.MethodPatch, "/api/tickets/"+ticketID+"/step",
		map[string]string{"funnelStepId": s.tenantA.StepIDs[1]})
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	s.Equal(1, s.count(`SELECT count(*) FROM tickets WHERE id = $1 AND funnel_step_id = $2`, ticketID, s.tenantA.StepIDs[1]))

	// A step of another company is rejected.
	resp = s.apiRequest(s.tenantA.Token, http.MethodPatch, "/api/tickets/"+ticketID+"/step",
		map[string]string{"funnelStepId": s.tenantB.StepIDs[1]})
	s.Equal(http.StatusBadRequest, resp.StatusCode)

	resp = s.apiRequest(s.tenantA.Token, http.MethodPatch, "/api/tickets/"+ticketID+"/assign",
		map[string]string{"userId": s.tenantA.UserID})
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	s.Equal(1, s.count(`SELECT count(*) FROM tickets WHERE id = $1 AND assigned_user_id = $2`, ticketID, s.tenantA.UserID))
}

func (s *CRMIntegrationSuite) TestRealtime_DeliversToOwnTenantOnly() {
	wsURL := "ws" + strings.TrimPrefix(s.server.URL, "http") + "/ws?token="

	connA, _, err := websocket.DefaultDialer.Dial(wsURL+s.tenantA.Token, nil)
	s.Require().NoError(err)
	defer connA.Close()
	connB, _, err := websocket.DefaultDialer.Dial(wsURL+s.tenantB.Token, nil)
	s.Require().NoError(err)
	defer connB.Close()

	s.postWebhook("messages-upsert", s.inbound("3EB0MARIA0040", "Oi pelo socket"))

	s.Require().NoError(connA.SetReadDeadline(time.Now().Add(5 * time.Second)))
	seen := map[string]bool{}
	for !seen[string(model.EventMessageCreated)] {
		var evt struct {
			Type string          `json:"type"`
			Data json.RawMessage `json:"data"`
		}
		s.Require().NoError(connA.ReadJSON(&evt), fmt.Sprintf("events seen so far: %v", seen))
		seen[evt.Type] = true
	}

	s.Require().NoError(connB.SetReadDeadline(time.Now().Add(500 * time.Millisecond)))
	for {
		var evt struct {
			Type string `json:"type"`
		}
		if err := connB.ReadJSON(&evt); err != nil {
			break
		}
		s.NotEqual(string(model.EventMessageCreated), evt.Type, "tenant B must not receive tenant A messages")
	}
}

func (s *CRMIntegrationSuite) TestSeedTenant_IsIdempotent() {
	funnel := model.NewFunnel("company-seed", "Novo")
	seed := storage.TenantSeed{
		Company: model.Company{ID: "company-seed", Slug: "seed", Name: "Seed"},
		Funnel:  *funnel,
	}
	s.Require().NoError(s.repo.SeedTenant(s.Ctx, seed))
	s.Require().NoError(s.repo.SeedTenant(s.Ctx, seed))
	s.Equal(1, s.count(`SELECT count(*) FROM companies WHERE id = 'company-seed'`))
	s.Equal(1, s.count(`SELECT count(*) FROM funnel_steps WHERE funnel_id = $1`, funnel.ID))
}
