package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/yungbote/minesafe-compliance/internal/app"
	"github.com/yungbote/minesafe-compliance/internal/messaging"
	"github.com/yungbote/minesafe-compliance/internal/platform/apierr"
	"github.com/yungbote/minesafe-compliance/internal/platform/dbctx"
	"github.com/yungbote/minesafe-compliance/internal/services"
)

type rosterUser struct {
	Name     string `yaml:"name"`
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
	Role     string `yaml:"role"`
}

type rosterEvent struct {
	Email    string         `yaml:"email"`
	Type     string         `yaml:"type"`
	Zone     string         `yaml:"zone"`
	Metadata map[string]any `yaml:"metadata"`
	// DaysAgo backdates the event for trend fixtures.
	DaysAgo int `yaml:"days_ago"`
}

type roster struct {
	Users  []rosterUser  `yaml:"users"`
	Events []rosterEvent `yaml:"events"`
}

func loadRoster(path string) (*roster, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var r roster
	if err := yaml.Unmarshal(raw, &r); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &r, nil
}

func main() {
	var path string
	var publish bool
	flag.StringVar(&path, "roster", "roster.yaml", "YAML roster of users and sample events")
	flag.BoolVar(&publish, "publish", true, "publish sample events to RabbitMQ when enabled")
	flag.Parse()

	r, err := loadRoster(path)
	if err != nil {
		fmt.Printf("load roster: %v\n", err)
		os.Exit(1)
	}

	a, err := app.Bootstrap(false)
	if err != nil {
		fmt.Printf("init app: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	ctx := context.Background()
	created, existing := 0, 0
	for _, u := range r.Users {
		_, err := a.Services.Auth.Register(ctx, services.RegisterInput{
			Name:     u.Name,
			Email:    u.Email,
			Password: u.Password,
			Role:     u.Role,
		})
		if ae, ok := apierr.As(err); ok && ae.Status == http.StatusConflict {
			existing++
			continue
		}
		if err != nil {
			a.Log.Error("Seeding user failed", "name", u.Name, "error", err)
			continue
		}
		created++
	}
	a.Log.Info("Roster seeded", "created", created, "existing", existing)

	if len(r.Events) == 0 || !publish {
		return
	}
	if !a.Cfg.RabbitMQ.Enabled {
		a.Log.Warn("Skipping sample events; RabbitMQ is disabled", "events", len(r.Events))
		return
	}
	conn, err := messaging.Dial(a.Cfg.RabbitMQ)
	if err != nil {
		a.Log.Error("RabbitMQ dial failed", "error", err)
		return
	}
	defer conn.Close()

	ids := map[string]uuid.UUID{}
	sent := 0
	now := time.Now().UTC()
	for _, ev := range r.Events {
		key := strings.ToLower(strings.TrimSpace(ev.Email))
		id, ok := ids[key]
		if !ok {
			u, err := a.Repos.User.GetByEmail(dbctx.Context{Ctx: ctx}, key)
			if err != nil {
				a.Log.Warn("Sample event for unknown user", "type", ev.Type, "error", err)
				continue
			}
			id = u.ID
			ids[key] = id
		}
		md := ev.Metadata
		if md == nil {
			md = map[string]any{}
		}
		if ev.Zone != "" {
			md["zone"] = ev.Zone
		}
		at := now.AddDate(0, 0, -ev.DaysAgo)
		body, err := json.Marshal(messaging.EventMessage{UserID: id.String(), Type: ev.Type, Metadata: md, OccurredAt: &at})
		if err != nil {
			a.Log.Warn("Encoding sample event failed", "type", ev.Type, "error", err)
			continue
		}
		if err := conn.Publish(body); err != nil {
			a.Log.Error("Publishing sample event failed", "error", err)
			return
		}
		sent++
	}
	a.Log.Info("Sample events published", "count", sent)
}
