package api

import (
	"context"
	"encoding/xml"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/alphaofficial/vassal/internal/queue"
)

// Handler is the HTTP front end collaborator described in spec §6: it
// parses form-encoded SQS actions, calls into the queue Engine, and
// renders XML responses. None of the queue-runtime logic lives here.
type Handler struct {
	engine *queue.Engine
	log    *logrus.Logger
}

// NewHandler builds a Handler around a queue Engine.
func NewHandler(engine *queue.Engine, log *logrus.Logger) *Handler {
	return &Handler{engine: engine, log: log}
}

// HandleAction dispatches Action= to the matching operation (spec §6's
// routing table: "/" keyed by QueueUrl, "/<queue_name>" keyed by path).
func (h *Handler) HandleAction(c *gin.Context) {
	if err := c.Request.ParseForm(); err != nil {
		h.writeError(c, "InvalidRequest", "Failed to parse form data", http.StatusBadRequest)
		return
	}

	action := c.Request.FormValue("Action")
	queueName := h.resolveQueueName(c)

	switch action {
	case "CreateQueue":
		h.handleCreateQueue(c)
	case "GetQueueUrl":
		h.handleGetQueueUrl(c)
	case "ListQueues":
		h.handleListQueues(c)
	case "DeleteQueue":
		h.handleDeleteQueue(c, queueName)
	case "SendMessage":
		h.handleSendMessage(c, queueName)
	case "ReceiveMessage":
		h.handleReceiveMessage(c, queueName)
	case "DeleteMessage":
		h.handleDeleteMessage(c, queueName)
	case "ChangeMessageVisibility":
		h.handleChangeMessageVisibility(c, queueName)
	case "GetQueueAttributes":
		h.handleGetQueueAttributes(c, queueName)
	case "":
		h.writeError(c, queue.CodeMissingParameter, "The request must contain the parameter Action.", http.StatusBadRequest)
	default:
		h.writeError(c, queue.CodeInvalidAction, "The action "+action+" is not valid for this endpoint.", http.StatusBadRequest)
	}
}

// resolveQueueName prefers the :queueName path parameter and falls back to
// extracting the trailing path segment of the QueueUrl form parameter.
func (h *Handler) resolveQueueName(c *gin.Context) string {
	if name := c.Param("queueName"); name != "" {
		return name
	}
	return extractQueueNameFromURL(c.Request.FormValue("QueueUrl"))
}

func extractQueueNameFromURL(queueURL string) string {
	if queueURL == "" {
		return ""
	}
	u, err := url.Parse(queueURL)
	if err != nil {
		return ""
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) == 0 {
		return ""
	}
	return parts[len(parts)-1]
}

func (h *Handler) handleCreateQueue(c *gin.Context) {
	name := c.Request.FormValue("QueueName")

	attrs := make(map[string]string)
	for key, values := range c.Request.Form {
		if strings.HasPrefix(key, "Attribute.") && strings.HasSuffix(key, ".Name") {
			idx := strings.TrimSuffix(strings.TrimPrefix(key, "Attribute."), ".Name")
			attrName := values[0]
			valueKey := "Attribute." + idx + ".Value"
			if vals, ok := c.Request.Form[valueKey]; ok && len(vals) > 0 {
				attrs[attrName] = vals[0]
			}
		}
	}

	queueURL, err := h.engine.CreateQueue(name, attrs)
	if err != nil {
		h.writeEngineError(c, err)
		return
	}

	h.writeXML(c, CreateQueueResponse{
		QueueURL:    queueURL,
		SQSResponse: SQSResponse{RequestId: uuid.NewString()},
	})
}

func (h *Handler) handleGetQueueUrl(c *gin.Context) {
	name := c.Request.FormValue("QueueName")
	queueURL, err := h.engine.GetQueueUrl(name)
	if err != nil {
		h.writeEngineError(c, err)
		return
	}
	h.writeXML(c, struct {
		XMLName  xml.Name `xml:"GetQueueUrlResponse"`
		QueueURL string   `xml:"GetQueueUrlResult>QueueUrl"`
		SQSResponse
	}{
		QueueURL:    queueURL,
		SQSResponse: SQSResponse{RequestId: uuid.NewString()},
	})
}

func (h *Handler) handleListQueues(c *gin.Context) {
	prefix := c.Request.FormValue("QueueNamePrefix")
	h.writeXML(c, ListQueuesResponse{
		QueueURLs:   h.engine.ListQueues(prefix),
		SQSResponse: SQSResponse{RequestId: uuid.NewString()},
	})
}

func (h *Handler) handleDeleteQueue(c *gin.Context, queueName string) {
	if err := h.engine.DeleteQueue(queueName); err != nil {
		h.writeEngineError(c, err)
		return
	}
	h.writeXML(c, DeleteQueueResponse{SQSResponse: SQSResponse{RequestId: uuid.NewString()}})
}

func (h *Handler) handleSendMessage(c *gin.Context, queueName string) {
	body := c.Request.FormValue("MessageBody")
	if body == "" {
		h.writeError(c, queue.CodeMissingParameter, "The request must contain the parameter MessageBody.", http.StatusBadRequest)
		return
	}

	var delaySeconds *int64
	if v := c.Request.FormValue("DelaySeconds"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			delaySeconds = &n
		}
	}

	id, md5, err := h.engine.SendMessage(queueName, body, delaySeconds)
	if err != nil {
		h.writeEngineError(c, err)
		return
	}

	h.writeXML(c, SendMessageResponse{
		MessageId:   id,
		MD5OfBody:   md5,
		SQSResponse: SQSResponse{RequestId: uuid.NewString()},
	})
}

func (h *Handler) handleReceiveMessage(c *gin.Context, queueName string) {
	maxMessages := 1
	if v := c.Request.FormValue("MaxNumberOfMessages"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			maxMessages = n
		}
	}

	var waitSeconds, visSeconds *int64
	if v := c.Request.FormValue("WaitTimeSeconds"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			waitSeconds = &n
		}
	}
	if v := c.Request.FormValue("VisibilityTimeout"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			visSeconds = &n
		}
	}

	requestedAttrs := collectIndexed(c.Request.Form, "AttributeName")

	ctx, cancel := requestContext(c, waitSeconds)
	defer cancel()

	messages, err := h.engine.ReceiveMessage(ctx, queueName, maxMessages, waitSeconds, visSeconds, requestedAttrs)
	if err != nil {
		h.writeEngineError(c, err)
		return
	}

	out := make([]Message, 0, len(messages))
	for _, m := range messages {
		out = append(out, Message{
			MessageId:     m.MessageID,
			ReceiptHandle: m.ReceiptHandle,
			MD5OfBody:     m.BodyMD5,
			Body:          m.Body,
			Attributes:    convertAttributes(m.Attributes),
		})
	}

	h.writeXML(c, ReceiveMessageResponse{
		Messages:    out,
		SQSResponse: SQSResponse{RequestId: uuid.NewString()},
	})
}

// requestContext derives a context that ends at the earlier of the client's
// request cancellation and the requested WaitTimeSeconds plus one second
// (with no positive WaitTimeSeconds it is the request context itself), so a
// client disconnect unblocks a parked receive without leaking the dequeued
// references (spec §5's cancellation requirement).
func requestContext(c *gin.Context, waitSeconds *int64) (context.Context, context.CancelFunc) {
	if waitSeconds == nil || *waitSeconds <= 0 {
		return c.Request.Context(), func() {}
	}
	return context.WithTimeout(c.Request.Context(), time.Duration(*waitSeconds)*time.Second+time.Second)
}

func collectIndexed(form url.Values, prefix string) []string {
	var out []string
	for key, values := range form {
		if key == prefix || strings.HasPrefix(key, prefix+".") {
			out = append(out, values...)
		}
	}
	return out
}

func convertAttributes(attrs map[string]string) []Attribute {
	out := make([]Attribute, 0, len(attrs))
	for name, value := range attrs {
		out = append(out, Attribute{Name: name, Value: value})
	}
	return out
}

func (h *Handler) handleDeleteMessage(c *gin.Context, queueName string) {
	handle := c.Request.FormValue("ReceiptHandle")
	if handle == "" {
		h.writeError(c, queue.CodeMissingParameter, "The request must contain the parameter ReceiptHandle.", http.StatusBadRequest)
		return
	}
	if err := h.engine.DeleteMessage(queueName, handle); err != nil {
		h.writeEngineError(c, err)
		return
	}
	h.writeXML(c, DeleteMessageResponse{SQSResponse: SQSResponse{RequestId: uuid.NewString()}})
}

func (h *Handler) handleChangeMessageVisibility(c *gin.Context, queueName string) {
	handle := c.Request.FormValue("ReceiptHandle")
	visStr := c.Request.FormValue("VisibilityTimeout")

	seconds, err := strconv.ParseInt(visStr, 10, 64)
	if err != nil {
		h.writeError(c, queue.CodeInvalidParameter, "Invalid VisibilityTimeout", http.StatusBadRequest)
		return
	}

	if err := h.engine.ChangeMessageVisibility(queueName, handle, seconds); err != nil {
		h.writeEngineError(c, err)
		return
	}
	h.writeXML(c, ChangeMessageVisibilityResponse{SQSResponse: SQSResponse{RequestId: uuid.NewString()}})
}

func (h *Handler) handleGetQueueAttributes(c *gin.Context, queueName string) {
	requested := collectIndexed(c.Request.Form, "AttributeName")
	attrs, err := h.engine.GetQueueAttributes(queueName, requested)
	if err != nil {
		h.writeEngineError(c, err)
		return
	}

	out := make([]QueueAttribute, 0, len(attrs))
	for name, value := range attrs {
		out = append(out, QueueAttribute{Name: name, Value: value})
	}

	h.writeXML(c, GetQueueAttributesResponse{
		Attributes:  out,
		SQSResponse: SQSResponse{RequestId: uuid.NewString()},
	})
}

func (h *Handler) writeXML(c *gin.Context, response interface{}) {
	c.Header("Content-Type", "application/xml")
	c.Status(http.StatusOK)
	c.Writer.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?>`))
	_ = xml.NewEncoder(c.Writer).Encode(response)
}

func (h *Handler) writeError(c *gin.Context, code, message string, status int) {
	renderError(c, code, message, status)
}

// renderError writes an SQS error body directly onto the response, with no
// dependency on a Handler instance — used by the panic-recovery middleware,
// which runs before a Handler is necessarily reachable.
func renderError(c *gin.Context, code, message string, status int) {
	c.Header("Content-Type", "application/xml")
	c.Status(status)
	_ = xml.NewEncoder(c.Writer).Encode(ErrorResponse{
		Error:     Error{Type: "Sender", Code: code, Message: message},
		RequestId: uuid.NewString(),
	})
}

// writeEngineError renders a *queue.SQSError with its mapped HTTP status,
// or falls back to Unknown for anything else (spec §7).
func (h *Handler) writeEngineError(c *gin.Context, err error) {
	var sqsErr *queue.SQSError
	if errors.As(err, &sqsErr) {
		h.writeError(c, sqsErr.Code, sqsErr.Message, http.StatusBadRequest)
		return
	}
	h.log.WithError(err).Error("unexpected error handling SQS action")
	h.writeError(c, queue.CodeUnknown, "An unknown error occurred.", http.StatusBadRequest)
}
