package controller

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/leebenson/conform"

	chat "kala-setu/internal/pkg/chat/application/domain"
)

var registerOnce sync.Once

// RegisterValidators installs the custom binding tags on gin's validator.
// Safe to call more than once.
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return f.Name
			}
			return name
		})
		_ = v.RegisterValidation("language", func(fl validator.FieldLevel) bool {
			_, err := chat.ParseLanguage(fl.Field().String())
			return err == nil
		})
	})
}

// bindJSON decodes the body into req, normalizes its string fields according
// to their conform tags and only then runs the binding validators, so
// " ABC " reaches the uuid or language check as "abc".
func bindJSON(c *gin.Context, req any) error {
	if c.Request.Body == nil {
		return errMissingBody
	}
	if err := json.NewDecoder(c.Request.Body).Decode(req); err != nil {
		if errors.Is(err, io.EOF) {
			return errMissingBody
		}
		return errors.New("invalid JSON body")
	}
	if err := conform.Strings(req); err != nil {
		return err
	}
	if err := binding.Validator.ValidateStruct(req); err != nil {
		return errors.New(describeBindError(err))
	}
	return nil
}

var errMissingBody = errors.New("request body is required")

func describeBindError(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		switch e.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", e.Field()))
		case "uuid":
			msgs = append(msgs, fmt.Sprintf("%s must be a UUID", e.Field()))
		case "language":
			msgs = append(msgs, fmt.Sprintf("%s %q is not a supported language", e.Field(), e.Value()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed on %s", e.Field(), e.Tag()))
		}
	}
	return strings.Join(msgs, "; ")
}

// conversationParam reads the :conversationId path segment as a canonical UUID.
func conversationParam(c *gin.Context) (string, error) {
	return parseConversationID(c.Param("conversationId"))
}

func parseConversationID(raw string) (string, error) {
	if raw == "" {
		return "", errors.New("conversationId is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", errors.New("conversationId must be a UUID")
	}
	return id.String(), nil
}
