package tests

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/knowledgelearning/backend/core/catalog"
	"github.com/knowledgelearning/backend/core/order"
	"github.com/knowledgelearning/backend/core/user"
)

func Test_catalogApi_browse(t *testing.T) {
	env := setup(t)
	fix := env.seedCatalog(t)

	client := env.createUser(t, "Jean Dupont", "jdupont", "jean@test.fr", "password123", user.RoleClient, true)
	env.buyLesson(t, client, fix.guitarL1.ID)

	t.Run("Anonymous", func(t *testing.T) {
		req, rec := newRequest(http.MethodGet, "/v1/catalog")
		env.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; body = %v", rec.Code, rec.Body.String())
		}

		var themes []order.ThemeCatalog
		if err := json.Unmarshal(rec.Body.Bytes(), &themes); err != nil {
			t.Fatalf("decoding response: %v", err)
		}
		if len(themes) != 2 {
			t.Fatalf("themes = %d; want 2", len(themes))
		}
		// themes come back sorted by name
		music := themes[1]
		if music.Name != "Musique" {
			t.Fatalf("themes[1] = %v; want Musique", music.Name)
		}
		for _, ci := range music.Cursus {
			if ci.Purchased {
				t.Errorf("cursus %v purchased for anonymous", ci.Name)
			}
			if !ci.AdjustedPrice.Equal(ci.Price) {
				t.Errorf("cursus %v adjusted = %v; want plain price %v", ci.Name, ci.AdjustedPrice, ci.Price)
			}
			for _, li := range ci.Lessons {
				if li.Purchased {
					t.Errorf("lesson %v purchased for anonymous", li.Title)
				}
			}
		}
	})

	t.Run("Owner of one lesson", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/catalog", getToken(t, client))
		env.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; body = %v", rec.Code, rec.Body.String())
		}

		var themes []order.ThemeCatalog
		if err := json.Unmarshal(rec.Body.Bytes(), &themes); err != nil {
			t.Fatalf("decoding response: %v", err)
		}

		var guitar order.CursusInfo
		for _, thm := range themes {
			for _, ci := range thm.Cursus {
				if ci.ID == fix.guitarCur.ID {
					guitar = ci
				}
			}
		}
		if guitar.ID == "" {
			t.Fatal("guitar cursus not found in catalog")
		}
		// 50 - 26 already owned
		if want := decimal.NewFromInt(24); !guitar.AdjustedPrice.Equal(want) {
			t.Errorf("adjusted price = %v; want %v", guitar.AdjustedPrice, want)
		}
		for _, li := range guitar.Lessons {
			if want := li.ID == fix.guitarL1.ID; li.Purchased != want {
				t.Errorf("lesson %v purchased = %v; want %v", li.Title, li.Purchased, want)
			}
		}
	})
}

func Test_catalogApi_lessonContent(t *testing.T) {
	env := setup(t)
	fix := env.seedCatalog(t)

	client := env.createUser(t, "Jean Dupont", "jdupont", "jean@test.fr", "password123", user.RoleClient, true)
	admin := env.createUser(t, "Admin", "admin", "admin@test.fr", "password123", user.RoleAdmin, true)
	env.buyLesson(t, client, fix.guitarL1.ID)

	get := func(t *testing.T, id, token string) catalog.Lesson {
		req, rec := newAuthRequest(http.MethodGet, "/v1/lessons/"+id, token)
		env.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; body = %v", rec.Code, rec.Body.String())
		}
		var lsn catalog.Lesson
		if err := json.Unmarshal(rec.Body.Bytes(), &lsn); err != nil {
			t.Fatalf("decoding response: %v", err)
		}
		return lsn
	}

	t.Run("Anonymous gets a preview", func(t *testing.T) {
		lsn := get(t, fix.guitarL1.ID, "")
		if lsn.Content != "" || lsn.VideoURL != "" {
			t.Error("content must be stripped for anonymous")
		}
		if lsn.Title != fix.guitarL1.Title {
			t.Errorf("title = %v; want %v", lsn.Title, fix.guitarL1.Title)
		}
	})

	t.Run("Non-owner gets a preview", func(t *testing.T) {
		if lsn := get(t, fix.guitarL2.ID, getToken(t, client)); lsn.Content != "" {
			t.Error("content must be stripped for a non-owner")
		}
	})

	t.Run("Owner gets the content", func(t *testing.T) {
		if lsn := get(t, fix.guitarL1.ID, getToken(t, client)); lsn.Content != fix.guitarL1.Content {
			t.Errorf("content = %q; want %q", lsn.Content, fix.guitarL1.Content)
		}
	})

	t.Run("Admin gets the content", func(t *testing.T) {
		if lsn := get(t, fix.pianoL1.ID, getToken(t, admin)); lsn.Content != fix.pianoL1.Content {
			t.Errorf("content = %q; want %q", lsn.Content, fix.pianoL1.Content)
		}
	})

	t.Run("Unknown lesson", func(t *testing.T) {
		req, rec := newRequest(http.MethodGet, "/v1/lessons/nope")
		env.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusNotFound {
			t.Errorf("code = %v; want %v", rec.Code, http.StatusNotFound)
		}
	})
}

func Test_catalogApi_adminCRUD(t *testing.T) {
	env := setup(t)

	client := env.createUser(t, "Jean Dupont", "jdupont", "jean@test.fr", "password123", user.RoleClient, true)
	admin := env.createUser(t, "Admin", "admin", "admin@test.fr", "password123", user.RoleAdmin, true)
	adminToken := getToken(t, admin)

	body := marchallObj(t, map[string]string{"name": "Cuisine"})

	t.Run("Auth required", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/v1/themes", body)
		env.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("code = %v; want %v", rec.Code, http.StatusUnauthorized)
		}
	})

	t.Run("Admin required", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/themes", getToken(t, client), body)
		env.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusForbidden {
			t.Errorf("code = %v; want %v", rec.Code, http.StatusForbidden)
		}
	})

	var thm catalog.Theme
	t.Run("Create theme", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/themes", adminToken, body)
		env.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("code = %v; body = %v", rec.Code, rec.Body.String())
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &thm); err != nil {
			t.Fatalf("decoding response: %v", err)
		}
		if thm.Name != "Cuisine" {
			t.Errorf("name = %v; want Cuisine", thm.Name)
		}
	})

	var cur catalog.Cursus
	t.Run("Create cursus", func(t *testing.T) {
		data := marchallObj(t, map[string]interface{}{
			"theme_id": thm.ID, "name": "Cuisine italienne", "price": "40",
		})
		req, rec := newAuthRequest(http.MethodPost, "/v1/cursus", adminToken, data)
		env.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("code = %v; body = %v", rec.Code, rec.Body.String())
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &cur); err != nil {
			t.Fatalf("decoding response: %v", err)
		}
		if !cur.Price.Equal(decimal.NewFromInt(40)) {
			t.Errorf("price = %v; want 40", cur.Price)
		}
	})

	t.Run("Create cursus under unknown theme", func(t *testing.T) {
		data := marchallObj(t, map[string]interface{}{
			"theme_id": "e9f7e276-9f31-40a9-95e0-0be522d9f6bd", "name": "Orpheline", "price": "40",
		})
		req, rec := newAuthRequest(http.MethodPost, "/v1/cursus", adminToken, data)
		env.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusNotFound {
			t.Errorf("code = %v; want %v", rec.Code, http.StatusNotFound)
		}
	})

	t.Run("Negative price rejected", func(t *testing.T) {
		data := marchallObj(t, map[string]interface{}{
			"theme_id": thm.ID, "name": "Gratuite", "price": "-1",
		})
		req, rec := newAuthRequest(http.MethodPost, "/v1/cursus", adminToken, data)
		env.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("code = %v; want %v", rec.Code, http.StatusBadRequest)
		}
	})

	t.Run("Update cursus price", func(t *testing.T) {
		data := marchallObj(t, map[string]interface{}{"price": "45"})
		req, rec := newAuthRequest(http.MethodPut, "/v1/cursus/"+cur.ID, adminToken, data)
		env.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; body = %v", rec.Code, rec.Body.String())
		}
		var updated catalog.Cursus
		if err := json.Unmarshal(rec.Body.Bytes(), &updated); err != nil {
			t.Fatalf("decoding response: %v", err)
		}
		if !updated.Price.Equal(decimal.NewFromInt(45)) {
			t.Errorf("price = %v; want 45", updated.Price)
		}
		if updated.Name != cur.Name {
			t.Errorf("name = %v; want unchanged %v", updated.Name, cur.Name)
		}
	})

	t.Run("Delete theme cascades", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/v1/themes/"+thm.ID, adminToken)
		env.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("code = %v; body = %v", rec.Code, rec.Body.String())
		}
		if _, err := env.catRepo.GetCursusByID(ctx(t), cur.ID); err == nil {
			t.Error("cursus survived its theme")
		}
	})
}
