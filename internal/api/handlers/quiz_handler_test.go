package handlers_test

import (
	"net/http"
	"testing"

	"github.com/pharmacie-web/backend/internal/application/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuizHandler_HairQuiz(t *testing.T) {
	mux := newTestMux(t, &stubSink{})

	w := doRequest(t, mux, "POST", "/api/quiz-sessions", `{"slug":"routine-cheveux-parfaite"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	view := decodeBody[services.QuizView](t, w)
	id := view.ID
	assert.Equal(t, 33, view.Progress)
	assert.False(t, view.CanGoNext)
	require.NotNil(t, view.CurrentQuestion)
	assert.Equal(t, "type-cheveux", view.CurrentQuestion.ID)

	answers := []struct{ question, value string }{
		{"type-cheveux", "gras"},
		{"texture-cheveux", "raides"},
		{"problematiques", "chute"},
		{"problematiques", "pellicules"},
	}
	for _, a := range answers {
		w = doRequest(t, mux, "PUT", "/api/quiz-sessions/"+id+"/answers/"+a.question, `{"value":"`+a.value+`"}`)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}
	assert.True(t, decodeBody[services.QuizView](t, w).CanGoNext)

	for i := 0; i < 3; i++ {
		w = doRequest(t, mux, "POST", "/api/quiz-sessions/"+id+"/next", "")
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}
	view = decodeBody[services.QuizView](t, w)
	require.True(t, view.State.Completed)
	require.NotNil(t, view.State.Result)
	assert.Equal(t, "gras", view.State.Result.ProfileType)
	assert.Equal(t, []string{"gras", "lisse", "chute", "pellicules"}, view.State.Result.Score.Axes())

	w = doRequest(t, mux, "GET", "/api/quiz-sessions/"+id, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decodeBody[services.QuizView](t, w).State.Completed)

	w = doRequest(t, mux, "POST", "/api/quiz-sessions/"+id+"/reset", "")
	require.Equal(t, http.StatusOK, w.Code)
	view = decodeBody[services.QuizView](t, w)
	assert.False(t, view.State.Completed)
	assert.Empty(t, view.State.Answers)

	w = doRequest(t, mux, "DELETE", "/api/quiz-sessions/"+id, "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = doRequest(t, mux, "GET", "/api/quiz-sessions/"+id, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestQuizHandler_Navigation(t *testing.T) {
	mux := newTestMux(t, &stubSink{})

	w := doRequest(t, mux, "POST", "/api/quiz-sessions", `{"slug":"diagnostic-peau-personnalise"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	id := decodeBody[services.QuizView](t, w).ID

	w = doRequest(t, mux, "POST", "/api/quiz-sessions/"+id+"/goto", `{"index":2}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, decodeBody[services.QuizView](t, w).State.CurrentQuestionIndex)

	w = doRequest(t, mux, "POST", "/api/quiz-sessions/"+id+"/previous", "")
	require.Equal(t, http.StatusOK, w.Code)
	view := decodeBody[services.QuizView](t, w)
	assert.Equal(t, 1, view.State.CurrentQuestionIndex)
	assert.True(t, view.CanGoPrevious)

	w = doRequest(t, mux, "POST", "/api/quiz-sessions/"+id+"/goto", `{"index":9}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(t, mux, "POST", "/api/quiz-sessions/"+id+"/goto", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(t, mux, "PUT", "/api/quiz-sessions/"+id+"/answers/type-peau", `{"value":"pas-une-option"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(t, mux, "POST", "/api/quiz-sessions/"+id+"/complete", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decodeBody[services.QuizView](t, w).State.Completed)
}

func TestQuizHandler_Errors(t *testing.T) {
	mux := newTestMux(t, &stubSink{})

	w := doRequest(t, mux, "POST", "/api/quiz-sessions", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(t, mux, "POST", "/api/quiz-sessions", `{"slug":"inconnu"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doRequest(t, mux, "POST", "/api/quiz-sessions/missing/next", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doRequest(t, mux, "DELETE", "/api/quiz-sessions/missing", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
