package account_test

import (
	"context"
	"sync"

	account "github.com/sho327/go-account"
	"github.com/stretchr/testify/mock"
)

// MockIdentityProvider implements account.IdentityProvider
type MockIdentityProvider struct {
	mock.Mock
}

func (m *MockIdentityProvider) VerifyCredentials(ctx context.Context, identifier, password string) (*account.User, error) {
	args := m.Called(ctx, identifier, password)
	var user *account.User
	if v := args.Get(0); v != nil {
		user = v.(*account.User)
	}
	return user, args.Error(1)
}

func (m *MockIdentityProvider) CanAuthenticate(ctx context.Context, user *account.User) (bool, error) {
	args := m.Called(ctx, user)
	return args.Bool(0), args.Error(1)
}

func (m *MockIdentityProvider) FindByIdentifier(ctx context.Context, identifier string) (*account.User, error) {
	args := m.Called(ctx, identifier)
	var user *account.User
	if v := args.Get(0); v != nil {
		user = v.(*account.User)
	}
	return user, args.Error(1)
}

// MockGrantIssuer implements account.GrantIssuer
type MockGrantIssuer struct {
	mock.Mock
}

func (m *MockGrantIssuer) IssueGrant(ctx context.Context, identity account.Identity) (string, error) {
	args := m.Called(ctx, identity)
	return args.String(0), args.Error(1)
}

// MockMailer implements account.Mailer
type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) Deliver(ctx context.Context, recipient, template string, data map[string]any) error {
	args := m.Called(ctx, recipient, template, data)
	return args.Error(0)
}

// capturingSink records activity events for assertions
type capturingSink struct {
	mu     sync.Mutex
	events []account.ActivityEvent
}

func (c *capturingSink) Record(_ context.Context, event account.ActivityEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
	return nil
}

func (c *capturingSink) Events() []account.ActivityEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]account.ActivityEvent, len(c.events))
	copy(out, c.events)
	return out
}

func (c *capturingSink) Types() []account.ActivityEventType {
	c.mu.Lock()
	defer c.mu.Unlock()
	types := make([]account.ActivityEventType, 0, len(c.events))
	for _, event := range c.events {
		types = append(types, event.EventType)
	}
	return types
}

// capturingMailer stores deliveries so tests can pull raw token values
type capturingMailer struct {
	mu         sync.Mutex
	deliveries []capturedDelivery
}

type capturedDelivery struct {
	Recipient string
	Template  string
	Data      map[string]any
}

func (c *capturingMailer) Deliver(_ context.Context, recipient, template string, data map[string]any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deliveries = append(c.deliveries, capturedDelivery{
		Recipient: recipient,
		Template:  template,
		Data:      data,
	})
	return nil
}

func (c *capturingMailer) Last() (capturedDelivery, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.deliveries) == 0 {
		return capturedDelivery{}, false
	}
	return c.deliveries[len(c.deliveries)-1], true
}

func (c *capturingMailer) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.deliveries)
}
