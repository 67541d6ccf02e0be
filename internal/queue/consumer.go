// Package queue contains the background consumer that listens to the
// booking.events queue and writes structured logs to logs/booking.log.
package queue

import (
    "encoding/json"
    "errors"
    "fmt"
    "log"
    "os"
    "path/filepath"
    "strings"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
)

const (
    consumerTag    = "seat-booking-logger"
    logDirName     = "logs"
    logFileName    = "booking.log"
    initialBackoff = time.Second
    maxBackoff     = 30 * time.Second
    redialDelay    = 2 * time.Second
    prefetchCount  = 50
)

// StartBookingConsumer connects to RabbitMQ, declares the booking.events
// queue (durable), and starts consuming messages. Each message is appended
// to logs/booking.log in a single-line, human-friendly format. The function
// runs a reconnect loop; processing errors are logged and the offending
// message rejected so the server keeps operating.
func StartBookingConsumer() error {
    url := brokerURL()

    backoff := initialBackoff
    for {
        conn, err := amqp.Dial(url)
        if err != nil {
            log.Printf("booking-consumer: failed to dial broker: %v; retrying in %s", err, backoff)
            time.Sleep(backoff)
            if backoff < maxBackoff {
                backoff *= 2
            }
            continue
        }
        backoff = initialBackoff // reset after successful connect

        if err := consumeLoop(conn); err != nil {
            log.Printf("booking-consumer: consume loop ended: %v; reconnecting", err)
            time.Sleep(redialDelay)
        }
    }
}

func consumeLoop(conn *amqp.Connection) error {
    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    // Bound in-flight deliveries; a slow disk must not pile up messages.
    if err := ch.Qos(prefetchCount, 0, false); err != nil {
        log.Printf("booking-consumer: set QoS failed: %v", err)
    }

    if _, err := ch.QueueDeclare(eventsQueueName, true, false, false, false, nil); err != nil {
        return fmt.Errorf("queue declare: %w", err)
    }

    msgs, err := ch.Consume(eventsQueueName, consumerTag, false, false, false, false, nil)
    if err != nil {
        return fmt.Errorf("queue consume: %w", err)
    }

    for d := range msgs {
        if err := handleMessage(d.Body); err != nil {
            log.Printf("booking-consumer: handle message failed: %v", err)
            _ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
            continue
        }
        _ = d.Ack(false)
    }
    return errors.New("deliveries channel closed")
}

func handleMessage(body []byte) error {
    var ev BookingEvent
    if err := json.Unmarshal(body, &ev); err != nil {
        return fmt.Errorf("unmarshal: %w", err)
    }
    return appendLogLine(formatEventLine(ev))
}

// appendLogLine appends one rendered line to logs/booking.log, creating
// the directory and file on first use.
func appendLogLine(line string) error {
    if err := os.MkdirAll(logDirName, 0o755); err != nil {
        return fmt.Errorf("mkdir logs: %w", err)
    }
    f, err := os.OpenFile(filepath.Join(logDirName, logFileName), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
    if err != nil {
        return fmt.Errorf("open log file: %w", err)
    }
    defer f.Close()

    if _, err := f.WriteString(line); err != nil {
        return fmt.Errorf("write log: %w", err)
    }
    return nil
}

// formatEventLine renders one event as a single log line.
func formatEventLine(ev BookingEvent) string {
    seatStrs := make([]string, 0, len(ev.SeatIDs))
    for _, id := range ev.SeatIDs {
        seatStrs = append(seatStrs, fmt.Sprintf("%d", id))
    }
    seats := fmt.Sprintf("[%s]", strings.Join(seatStrs, ","))

    var label string
    switch ev.Type {
    case TypeBookingConfirmed:
        label = "Booking confirmed"
    case TypeBookingCancelled:
        label = "Booking cancelled"
    case TypeBookingExpired:
        label = "Booking expired"
    default:
        label = "Booking event " + ev.Type
    }

    extra := ""
    if ev.Reason != nil && *ev.Reason != "" {
        extra = fmt.Sprintf(" | reason=%q", *ev.Reason)
    }
    if ev.PromoCode != nil && *ev.PromoCode != "" {
        extra += fmt.Sprintf(" | promo=%s", *ev.PromoCode)
    }

    return fmt.Sprintf("[%s] %s | booking_id=%s | user_id=%d | event_id=%d | total=%.2f | discount=%.2f | final=%.2f %s | seats=%s%s\n",
        ev.OccurredAt, label, ev.BookingID, ev.UserID, ev.EventID,
        ev.TotalAmount, ev.DiscountAmount, ev.FinalAmount, ev.Currency, seats, extra)
}
