package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RunCompletedMessage announces a committed generation run. Consumers read the
// records back from the store; the message carries only identifiers and counts.
type RunCompletedMessage struct {
	ID           uuid.UUID `json:"id"`
	ClientRunID  uuid.UUID `json:"clientRunId"`
	TxRunID      uuid.UUID `json:"transactionRunId"`
	Clients      int       `json:"clients"`
	Transactions int       `json:"transactions"`
	ElapsedMs    int64     `json:"elapsedMs"`
	Rate         float64   `json:"ratePerSecond"`
	Timestamp    time.Time `json:"timestamp"`
}

// NewRunCompletedMessage stamps a fresh message id and the current time.
func NewRunCompletedMessage(clientRun, txRun uuid.UUID, clients, transactions int, elapsed time.Duration, rate float64) *RunCompletedMessage {
	return &RunCompletedMessage{
		ID:           uuid.New(),
		ClientRunID:  clientRun,
		TxRunID:      txRun,
		Clients:      clients,
		Transactions: transactions,
		ElapsedMs:    elapsed.Milliseconds(),
		Rate:         rate,
		Timestamp:    time.Now().UTC(),
	}
}

func (m *RunCompletedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func RunCompletedMessageFromJSON(data []byte) (*RunCompletedMessage, error) {
	var msg RunCompletedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.ID == uuid.Nil {
		return nil, fmt.Errorf("run completed message without id")
	}
	return &msg, nil
}
