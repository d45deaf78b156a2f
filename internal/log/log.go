// Package log writes one JSON object per line through the standard logger.
// Request-scoped entries carry the request id, client ip, route and the
// logged-in user; entries written outside a request pass a nil context.
package log

import (
	"encoding/json"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
)

type level string

const (
	levelInfo  level = "info"
	levelAudit level = "audit"
	levelWarn  level = "warn"
	levelError level = "error"
)

type entry struct {
	TS     string         `json:"ts"`
	Level  level          `json:"level"`
	Action string         `json:"action,omitempty"`
	User   string         `json:"user,omitempty"`
	ReqID  string         `json:"req_id,omitempty"`
	IP     string         `json:"ip,omitempty"`
	Method string         `json:"method,omitempty"`
	Path   string         `json:"path,omitempty"`
	Status int            `json:"status,omitempty"`
	Err    string         `json:"err,omitempty"`
	Fields map[string]any `json:"fields,omitempty"`
}

// userNamer is satisfied by *domain.User.
type userNamer interface{ LoginName() string }

func (e *entry) request(c *fiber.Ctx) {
	e.IP, e.Method, e.Path = c.IP(), c.Method(), c.Path()
	e.Status = c.Response().StatusCode()
	if rid, _ := c.Locals("requestid").(string); rid != "" {
		e.ReqID = rid
	}
	if u, ok := c.Locals("user").(userNamer); ok && u != nil {
		e.User = u.LoginName()
	}
}

func emit(lv level, c *fiber.Ctx, action string, err error, fields map[string]any) {
	e := entry{
		TS:     time.Now().UTC().Format(time.RFC3339),
		Level:  lv,
		Action: action,
		Fields: fields,
	}
	if c != nil {
		e.request(c)
	}
	if err != nil {
		e.Err = err.Error()
	}
	b, mErr := json.Marshal(e)
	if mErr != nil {
		// fields held something json cannot encode
		e.Fields = map[string]any{"unencodable": mErr.Error()}
		b, _ = json.Marshal(e)
	}
	log.Println(string(b))
}

// Info records routine events.
func Info(c *fiber.Ctx, action string, fields map[string]any) {
	emit(levelInfo, c, action, nil, fields)
}

// Audit records a change to business data: sales, stock, clients, expenses.
func Audit(c *fiber.Ctx, action string, fields map[string]any) {
	emit(levelAudit, c, action, nil, fields)
}

// Security records denied access, throttling and failed logins.
func Security(c *fiber.Ctx, action string, fields map[string]any) {
	emit(levelWarn, c, action, nil, fields)
}

// Warn records a recoverable problem together with its cause.
func Warn(c *fiber.Ctx, action string, err error, fields map[string]any) {
	emit(levelWarn, c, action, err, fields)
}

func Error(c *fiber.Ctx, action string, err error, fields map[string]any) {
	emit(levelError, c, action, err, fields)
}
