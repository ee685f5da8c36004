package mailer_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/launchkit/saas-starter-kit/internal"
	"github.com/launchkit/saas-starter-kit/internal/mailer"
	"github.com/launchkit/saas-starter-kit/pkg/logger"
)

type recordingSender struct {
	mu       sync.Mutex
	messages []mailer.Message
	block    chan struct{}
	err      error
}

func (s *recordingSender) Send(_ context.Context, msg mailer.Message) error {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msg)
	return s.err
}

func (s *recordingSender) Sent() []mailer.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]mailer.Message(nil), s.messages...)
}

var _ = Describe("HTTPSender", func() {
	var (
		server   *httptest.Server
		received map[string]interface{}
		headers  http.Header
		status   int
	)

	BeforeEach(func() {
		status = http.StatusOK
		received = nil
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			headers = r.Header.Clone()
			Expect(json.NewDecoder(r.Body).Decode(&received)).To(Succeed())
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"id":"email_1"}`))
		}))
	})

	AfterEach(func() {
		server.Close()
	})

	newSender := func() *mailer.HTTPSender {
		return mailer.NewHTTPSender(internal.EmailConfig{
			APIURL:      server.URL,
			APIKey:      "re_test",
			FromAddress: "noreply@example.com",
			FromName:    "Acme",
			Timeout:     time.Second,
		})
	}

	It("posts the message with bearer auth and a named sender", func() {
		err := newSender().Send(context.Background(), mailer.Message{
			To:      "jane@example.com",
			Subject: "Hello",
			HTML:    "<p>hi</p>",
			Text:    "hi",
		})

		Expect(err).NotTo(HaveOccurred())
		Expect(headers.Get("Authorization")).To(Equal("Bearer re_test"))
		Expect(headers.Get("Content-Type")).To(Equal("application/json"))
		Expect(received["from"]).To(Equal("Acme <noreply@example.com>"))
		Expect(received["to"]).To(ConsistOf("jane@example.com"))
		Expect(received["subject"]).To(Equal("Hello"))
		Expect(received["text"]).To(Equal("hi"))
	})

	It("returns an error on a non-2xx response", func() {
		status = http.StatusUnprocessableEntity

		err := newSender().Send(context.Background(), mailer.Message{To: "jane@example.com", Subject: "Hello"})

		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("422"))
	})
})

var _ = Describe("NewSender", func() {
	It("falls back to the log sender without an api key", func() {
		s := mailer.NewSender(internal.EmailConfig{APIURL: "http://localhost"}, logger.Discard())
		Expect(s).To(BeAssignableToTypeOf(&mailer.LogSender{}))
		Expect(s.Send(context.Background(), mailer.Message{To: "a@example.com"})).To(Succeed())
	})

	It("uses the http sender when configured", func() {
		s := mailer.NewSender(internal.EmailConfig{APIURL: "http://localhost", APIKey: "k"}, logger.Discard())
		Expect(s).To(BeAssignableToTypeOf(&mailer.HTTPSender{}))
	})
})

var _ = Describe("Pool", func() {
	It("delivers queued messages through the sender", func() {
		sender := &recordingSender{}
		pool := mailer.NewPool(sender, internal.EmailConfig{Workers: 2, QueueSize: 4}, logger.Discard())
		defer pool.Shutdown()

		Expect(pool.Enqueue(mailer.Message{To: "a@example.com"})).To(Succeed())
		Expect(pool.Enqueue(mailer.Message{To: "b@example.com"})).To(Succeed())

		Eventually(func() int { return len(sender.Sent()) }).Should(Equal(2))
	})

	It("keeps running when a send fails", func() {
		sender := &recordingSender{err: errors.New("boom")}
		pool := mailer.NewPool(sender, internal.EmailConfig{Workers: 1, QueueSize: 2}, logger.Discard())
		defer pool.Shutdown()

		Expect(pool.Enqueue(mailer.Message{To: "a@example.com"})).To(Succeed())
		Eventually(func() int { return len(sender.Sent()) }).Should(Equal(1))
		Expect(pool.Enqueue(mailer.Message{To: "b@example.com"})).To(Succeed())
		Eventually(func() int { return len(sender.Sent()) }).Should(Equal(2))
	})

	It("rejects messages once the queue is full", func() {
		sender := &recordingSender{block: make(chan struct{})}
		pool := mailer.NewPool(sender, internal.EmailConfig{Workers: 1, QueueSize: 1}, logger.Discard())

		var rejected bool
		for i := 0; i < 10; i++ {
			if err := pool.Enqueue(mailer.Message{To: "a@example.com"}); errors.Is(err, mailer.ErrQueueFull) {
				rejected = true
				break
			}
		}
		Expect(rejected).To(BeTrue())

		close(sender.block)
		pool.Shutdown()
	})

	It("rejects messages after shutdown", func() {
		pool := mailer.NewPool(&recordingSender{}, internal.EmailConfig{}, logger.Discard())
		pool.Shutdown()

		Expect(pool.Enqueue(mailer.Message{To: "a@example.com"})).To(MatchError(mailer.ErrQueueFull))
	})
})
