package clients

import (
	"encoding/json"
	"time"

	"github.com/Tkapesa/Necf-Attendance-System/src/internal/config"
	"github.com/Tkapesa/Necf-Attendance-System/src/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/streadway/amqp"
)

// ActivityPublisher publishes attendance activity events to RabbitMQ.
// Publishing is fire-and-forget: a failed publish is logged and never
// fails the request that triggered it.
type ActivityPublisher struct {
	channel *amqp.Channel
	cfg     *config.RabbitMQConfig
}

func NewActivityPublisher(cfg *config.Configuration, channel *amqp.Channel) *ActivityPublisher {
	return &ActivityPublisher{
		channel: channel,
		cfg:     &cfg.Queue.RabbitMQ,
	}
}

// PublishActivity publishes an activity message for a user action.
func (p *ActivityPublisher) PublishActivity(userID, serviceName, action string) error {
	return p.PublishActivityWithDetails(userID, "", "", serviceName, action, nil)
}

// PublishActivityWithDetails publishes an activity message carrying the
// member and session the action touched.
func (p *ActivityPublisher) PublishActivityWithDetails(userID, memberID, sessionID, serviceName, action string, metadata map[string]string) error {
	message := models.ActivityMessage{
		UserID:      userID,
		MemberID:    memberID,
		SessionID:   sessionID,
		ServiceName: serviceName,
		Action:      action,
		Metadata:    metadata,
		Timestamp:   time.Now(),
	}

	body, err := json.Marshal(message)
	if err != nil {
		return err
	}

	err = p.channel.Publish(
		p.cfg.Exchange,
		p.cfg.RoutingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
			Timestamp:   time.Now(),
		},
	)

	if err != nil {
		logrus.WithError(err).Error("Failed to publish activity message")
		return err
	}

	logrus.WithFields(logrus.Fields{
		"user_id":     userID,
		"member_id":   memberID,
		"session_id":  sessionID,
		"service":     serviceName,
		"action":      action,
		"exchange":    p.cfg.Exchange,
		"routing_key": p.cfg.RoutingKey,
	}).Debug("Activity message published")

	return nil
}
