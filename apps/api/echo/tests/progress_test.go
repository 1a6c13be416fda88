package tests

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/knowledgelearning/backend/core/certification"
	"github.com/knowledgelearning/backend/core/progress"
	"github.com/knowledgelearning/backend/core/user"
)

func Test_progressApi_completeAndValidate(t *testing.T) {
	env := setup(t)
	fix := env.seedCatalog(t)

	client := env.createUser(t, "Jean Dupont", "jdupont", "jean@test.fr", "password123", user.RoleClient, true)
	token := getToken(t, client)

	t.Run("No access", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/progress/lessons/"+fix.guitarL1.ID+"/complete", token)
		env.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusForbidden {
			t.Errorf("code = %v; want %v", rec.Code, http.StatusForbidden)
		}
	})

	env.buyLesson(t, client, fix.guitarL1.ID)

	t.Run("Validate before completing", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/progress/lessons/"+fix.guitarL1.ID+"/validate", token)
		env.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("code = %v; want %v", rec.Code, http.StatusBadRequest)
		}
	})

	t.Run("Complete", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/progress/lessons/"+fix.guitarL1.ID+"/complete", token)
		env.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; body = %v", rec.Code, rec.Body.String())
		}
		var prog progress.Progress
		if err := json.Unmarshal(rec.Body.Bytes(), &prog); err != nil {
			t.Fatalf("decoding response: %v", err)
		}
		if !prog.Completed || prog.Validated {
			t.Errorf("progress = %+v; want completed, not validated", prog)
		}
		if prog.CompletedAt == nil {
			t.Error("CompletedAt not set")
		}
	})

	t.Run("Validate", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/progress/lessons/"+fix.guitarL1.ID+"/validate", token)
		env.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; body = %v", rec.Code, rec.Body.String())
		}
		var prog progress.Progress
		if err := json.Unmarshal(rec.Body.Bytes(), &prog); err != nil {
			t.Fatalf("decoding response: %v", err)
		}
		if !prog.Validated {
			t.Error("lesson was not validated")
		}
	})

	t.Run("Progress list", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/progress", token)
		env.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; body = %v", rec.Code, rec.Body.String())
		}
		var records []progress.Progress
		if err := json.Unmarshal(rec.Body.Bytes(), &records); err != nil {
			t.Fatalf("decoding response: %v", err)
		}
		if len(records) != 1 || records[0].LessonID != fix.guitarL1.ID {
			t.Errorf("records = %+v; want one for %v", records, fix.guitarL1.ID)
		}
	})

	t.Run("Never-started lesson reads as blank", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/progress/lessons/"+fix.guitarL2.ID, token)
		env.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; body = %v", rec.Code, rec.Body.String())
		}
		var prog progress.Progress
		if err := json.Unmarshal(rec.Body.Bytes(), &prog); err != nil {
			t.Fatalf("decoding response: %v", err)
		}
		if prog.Completed || prog.Validated {
			t.Errorf("progress = %+v; want untouched", prog)
		}
	})
}

func Test_progressApi_certificationIssued(t *testing.T) {
	env := setup(t)
	fix := env.seedCatalog(t)

	client := env.createUser(t, "Jean Dupont", "jdupont", "jean@test.fr", "password123", user.RoleClient, true)
	admin := env.createUser(t, "Admin", "admin", "admin@test.fr", "password123", user.RoleAdmin, true)
	token := getToken(t, client)

	finish := func(t *testing.T, lessonID string) {
		env.buyLesson(t, client, lessonID)
		for _, action := range []string{"complete", "validate"} {
			req, rec := newAuthRequest(http.MethodPost, "/v1/progress/lessons/"+lessonID+"/"+action, token)
			env.app.ServeHTTP(rec, req)
			if rec.Code != http.StatusOK {
				t.Fatalf("%v failed! code = %v; body = %v", action, rec.Code, rec.Body.String())
			}
		}
	}

	certifications := func(t *testing.T, path, token string) []certification.Certification {
		req, rec := newAuthRequest(http.MethodGet, path, token)
		env.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; body = %v", rec.Code, rec.Body.String())
		}
		var certs []certification.Certification
		if err := json.Unmarshal(rec.Body.Bytes(), &certs); err != nil {
			t.Fatalf("decoding response: %v", err)
		}
		return certs
	}

	// two of the three Musique lessons are not enough
	finish(t, fix.guitarL1.ID)
	finish(t, fix.guitarL2.ID)
	if certs := certifications(t, "/v1/certifications", token); len(certs) != 0 {
		t.Fatalf("certifications = %d; want none before the last lesson", len(certs))
	}

	// the last validation of the theme issues the certification
	finish(t, fix.pianoL1.ID)
	certs := certifications(t, "/v1/certifications", token)
	if len(certs) != 1 {
		t.Fatalf("certifications = %d; want 1", len(certs))
	}
	if certs[0].ThemeID != fix.musicTheme.ID {
		t.Errorf("theme = %v; want %v", certs[0].ThemeID, fix.musicTheme.ID)
	}

	t.Run("Admin listing", func(t *testing.T) {
		all := certifications(t, "/v1/certifications/all", getToken(t, admin))
		if len(all) != 1 {
			t.Errorf("certifications = %d; want 1", len(all))
		}
	})

	t.Run("Admin required for the full listing", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/certifications/all", token)
		env.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusForbidden {
			t.Errorf("code = %v; want %v", rec.Code, http.StatusForbidden)
		}
	})
}
