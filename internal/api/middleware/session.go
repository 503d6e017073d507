// session.go — middleware аутентификации по зашифрованному session cookie.
// Дешифрует cookie в SessionData и кладёт её в контекст запроса;
// запросы без валидной сессии получают 401 в стандартном формате.
package middleware

import (
	"context"
	"log/slog"
	"net/http"

	apierrors "github.com/arturkryukov/moldtrack/internal/api/errors"
	"github.com/arturkryukov/moldtrack/internal/auth"
)

// contextKey — тип для ключей контекста (избегаем коллизий).
type contextKey string

// ContextKeySession — данные сессии в контексте запроса.
const ContextKeySession contextKey = "session"

// SessionAuth — middleware аутентификации по cookie.
type SessionAuth struct {
	sessions *auth.SessionManager
	logger   *slog.Logger
}

// NewSessionAuth создаёт middleware аутентификации.
func NewSessionAuth(sessions *auth.SessionManager, logger *slog.Logger) *SessionAuth {
	return &SessionAuth{
		sessions: sessions,
		logger:   logger.With(slog.String("component", "session_auth")),
	}
}

// Middleware проверяет session cookie запроса.
// Отсутствующая, нечитаемая или истёкшая сессия — 401.
func (a *SessionAuth) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, err := a.sessions.GetSessionFromRequest(r)
			if err != nil {
				a.logger.Debug("Нечитаемый session cookie", slog.String("error", err.Error()))
				apierrors.Unauthorized(w, "Сессия недействительна")
				return
			}
			if session == nil {
				apierrors.Unauthorized(w, "Требуется вход")
				return
			}
			if session.IsExpired() {
				apierrors.Unauthorized(w, "Сессия истекла")
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeySession, session)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SessionFromContext извлекает данные сессии из контекста запроса.
// Возвращает nil, если middleware не отработал (запрос вне защищённых путей).
func SessionFromContext(ctx context.Context) *auth.SessionData {
	session, _ := ctx.Value(ContextKeySession).(*auth.SessionData)
	return session
}
