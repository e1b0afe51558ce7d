package jobs

// Queue names.
const (
	QueueOrders         = "orders"
	QueueScheduledPosts = "scheduled-posts"
	QueueEmails         = "emails"
)

// Job types.
const (
	TypeCheckPaymentStatus   = "checkPaymentStatus"
	TypePublishScheduledPost = "publishScheduledPost"
	TypeSendEmail            = "sendEmail"
	TypeSweepPendingPayments = "sweepPendingPayments"
)

// Payload is implemented only by the payload types of this package, so the
// set of job kinds is closed.
type Payload interface {
	JobType() string
	// Queue is the queue the job runs on.
	Queue() string
	// Key is the idempotent job key; empty means a random one.
	Key() string

	sealed()
}

// CheckPaymentStatus asks the payment gateway for the state of an order payment.
type CheckPaymentStatus struct {
	OrderID         string `json:"orderId" validate:"required"`
	ExternalOrderID string `json:"externalOrderId" validate:"required"`
	ScopeID         string `json:"scopeId,omitempty"`
}

func (CheckPaymentStatus) JobType() string { return TypeCheckPaymentStatus }
func (CheckPaymentStatus) Queue() string   { return QueueOrders }
func (p CheckPaymentStatus) Key() string   { return p.OrderID }
func (CheckPaymentStatus) sealed()         {}

// PublishScheduledPost publishes a post to every platform it targets.
type PublishScheduledPost struct {
	PostID string `json:"postId" validate:"required"`
	UserID string `json:"userId" validate:"required"`
}

func (PublishScheduledPost) JobType() string { return TypePublishScheduledPost }
func (PublishScheduledPost) Queue() string   { return QueueScheduledPosts }
func (p PublishScheduledPost) Key() string   { return p.PostID }
func (PublishScheduledPost) sealed()         {}

// SendEmail sends one transactional email.
type SendEmail struct {
	To       string `json:"to" validate:"required,email"`
	Subject  string `json:"subject" validate:"required,max=255"`
	BodyHTML string `json:"bodyHtml" validate:"required"`
	Tag      string `json:"tag,omitempty" validate:"omitempty,max=100"`
	// DedupKey, when set, makes at most one pending email per key.
	DedupKey string `json:"dedupKey,omitempty"`
}

func (SendEmail) JobType() string { return TypeSendEmail }
func (SendEmail) Queue() string   { return QueueEmails }
func (p SendEmail) Key() string   { return p.DedupKey }
func (SendEmail) sealed()         {}

var (
	_ Payload = CheckPaymentStatus{}
	_ Payload = PublishScheduledPost{}
	_ Payload = SendEmail{}
)
