package middleware

import (
	"github.com/charmbracelet/log"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/logger"
)

// ============================================================
// Logger Middleware
// ============================================================

// Logger возвращает middleware access-лога. Строки уходят в общий логгер сервиса,
// уровень выбирается по статусу ответа.
func Logger(l *log.Logger) fiber.Handler {
	return logger.New(logger.Config{
		Format:        "${level} ${status} - ${latency} ${method} ${path}\n",
		Stream:        l.StandardLog().Writer(),
		DisableColors: true,
		CustomTags: map[string]logger.LogFunc{
			"level": func(output logger.Buffer, c fiber.Ctx, _ *logger.Data, _ string) (int, error) {
				return output.WriteString(statusLevel(c.Response().StatusCode()))
			},
		},
	})
}

func statusLevel(status int) string {
	switch {
	case status >= fiber.StatusInternalServerError:
		return "ERROR"
	case status >= fiber.StatusBadRequest:
		return "WARN"
	default:
		return "DEBUG"
	}
}
