package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/corray333/pedidos-svc/internal/dal/rabbitmq"
	"github.com/corray333/pedidos-svc/internal/service/models/order"
	"github.com/corray333/pedidos-svc/internal/service/models/orderline"
	"github.com/streadway/amqp"
	"golang.org/x/sync/errgroup"
)

// AuditRabbitMQRepository publishes order audit events to RabbitMQ. Delivery
// is fire-and-forget: no outbox, no retry — the caller logs and swallows
// failures.
type AuditRabbitMQRepository struct {
	client *rabbitmq.Client
	queue  amqp.Queue
}

// NewAuditRabbitMQRepository creates the repository and declares its queue.
func NewAuditRabbitMQRepository(client *rabbitmq.Client) *AuditRabbitMQRepository {
	queue, err := client.DeclareQueue(rabbitmq.DeclareQueueConfig{
		Name:       "pedidos.order.created",
		Durable:    false,
		Exclusive:  false,
		AutoDelete: false,
	})
	if err != nil {
		panic(err)
	}

	return &AuditRabbitMQRepository{
		client: client,
		queue:  queue,
	}
}

// orderCreatedEvent is published once per created line so consumers get
// line-level granularity.
type orderCreatedEvent struct {
	OrderID     int64  `json:"order_id"`
	OrderNumber string `json:"order_number"`
	OrderLineID int64  `json:"order_line_id"`
	LineNumber  int    `json:"line_number"`
	ProductID   int64  `json:"product_id"`
	Quantity    int    `json:"quantity"`
	CustomerID  int64  `json:"customer_id"`
	OrderStatus string `json:"order_status"`
}

// LogOrderCreated publishes one event per line of the created header.
func (r *AuditRabbitMQRepository) LogOrderCreated(
	ctx context.Context,
	header order.Header,
	lines []orderline.Line,
) error {
	auditCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	g, _ := errgroup.WithContext(auditCtx)
	g.SetLimit(3)

	for _, line := range lines {
		line := line
		g.Go(func() error {
			payload, err := json.Marshal(orderCreatedEvent{
				OrderID:     header.ID,
				OrderNumber: header.OrderNumber,
				OrderLineID: line.ID,
				LineNumber:  line.LineNumber,
				ProductID:   line.ProductID,
				Quantity:    line.Quantity,
				CustomerID:  header.CustomerID,
				OrderStatus: header.Status.String(),
			})
			if err != nil {
				return err
			}

			return r.client.Channel().Publish(
				"",
				r.queue.Name,
				false,
				false,
				amqp.Publishing{
					ContentType: "application/json",
					Body:        payload,
				},
			)
		})
	}

	return g.Wait()
}
