package handlers

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/mbxbilling/insights/internal/storage"
	amqp "github.com/rabbitmq/amqp091-go"
)

// HealthDeps lists the backing services to check. Nil or empty entries are
// reported as "skipped".
type HealthDeps struct {
	DB          *sql.DB
	Storage     storage.Storage
	RabbitMQURL string
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func Health(deps *HealthDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		checks := map[string]string{}
		status := "healthy"

		switch {
		case deps.DB == nil:
			checks["db"] = "skipped"
		case deps.DB.PingContext(ctx) != nil:
			checks["db"] = "unhealthy"
			status = "unhealthy"
		default:
			checks["db"] = "ok"
		}

		switch {
		case deps.Storage == nil:
			checks["s3"] = "skipped"
		default:
			if _, err := deps.Storage.Exists(ctx, "__health__"); err != nil {
				checks["s3"] = "unhealthy"
				if status == "healthy" {
					status = "degraded"
				}
			} else {
				checks["s3"] = "ok"
			}
		}

		if deps.RabbitMQURL != "" {
			conn, err := amqp.DialConfig(deps.RabbitMQURL, amqp.Config{Dial: amqp.DefaultDial(3 * time.Second)})
			if err != nil {
				checks["rabbitmq"] = "unhealthy"
				if status == "healthy" {
					status = "degraded"
				}
			} else {
				_ = conn.Close()
				checks["rabbitmq"] = "ok"
			}
		} else {
			checks["rabbitmq"] = "skipped"
		}

		code := http.StatusOK
		if status == "unhealthy" {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, healthResponse{Status: status, Checks: checks})
	}
}
