package handler

import (
	"net/http"
	"testing"

	"github.com/bitfantasy/nimo-mes/internal/mes/entity"
	"github.com/bitfantasy/nimo-mes/internal/mes/repository"
	"github.com/bitfantasy/nimo-mes/internal/mes/service"
	"github.com/bitfantasy/nimo-mes/internal/mes/testutil"
)

func setupTemplateTest(t *testing.T) *testutil.TestEnv {
	t.Helper()
	db := testutil.SetupTestDB(t)

	templateRepo := repository.NewTemplateRepository(db)
	svc := service.NewTemplateService(templateRepo)
	h := NewTemplateHandler(svc)

	router := testutil.SetupRouter()
	api := testutil.AuthGroup(router, "/api/v1/mes")
	api.GET("/qc-templates", h.ListTemplates)
	api.POST("/qc-templates", h.CreateTemplate)
	api.GET("/qc-templates/:id", h.GetTemplate)
	api.PUT("/qc-templates/:id", h.UpdateTemplate)
	api.POST("/qc-templates/:id/render", h.RenderTemplate)
	api.POST("/qc-templates/:id/sections", h.AddSection)
	api.POST("/qc-template-sections/:sectionId/checkpoints", h.AddCheckpoint)

	return &testutil.TestEnv{DB: db, Router: router, T: t}
}

// seedConditionalTemplate 两个章节：通用章节无条件，阳极章节只对aluminum显示
// 通用章节下的第二个检查点也挂material条件
func seedConditionalTemplate(t *testing.T, env *testutil.TestEnv, id string) {
	t.Helper()
	tpl := &entity.QCTemplate{ID: id, Code: "TPL-" + id, Name: "条件模板", Status: "active"}
	if err := env.DB.Create(tpl).Error; err != nil {
		t.Fatalf("seed template: %v", err)
	}

	general := &entity.QCTemplateSection{
		ID: id + "-sec-general", TemplateID: id, SectionNumber: 1, Name: "通用检查",
	}
	anodize := &entity.QCTemplateSection{
		ID: id + "-sec-anodize", TemplateID: id, SectionNumber: 2, Name: "阳极氧化检查",
		ConditionalLogic: entity.JSONB{"show_if": map[string]interface{}{"material": "aluminum"}},
	}
	for _, sec := range []*entity.QCTemplateSection{general, anodize} {
		if err := env.DB.Create(sec).Error; err != nil {
			t.Fatalf("seed section: %v", err)
		}
	}

	cps := []*entity.QCTemplateCheckpoint{
		{ID: id + "-cp-dim", SectionID: general.ID, DisplayOrder: 1, Name: "尺寸检查"},
		{
			ID: id + "-cp-alu", SectionID: general.ID, DisplayOrder: 2, Name: "铝件专项",
			ConditionalLogic: entity.JSONB{"show_if": map[string]interface{}{"material": "aluminum"}},
		},
		{ID: id + "-cp-color", SectionID: anodize.ID, DisplayOrder: 1, Name: "色差检查"},
	}
	for _, cp := range cps {
		if err := env.DB.Create(cp).Error; err != nil {
			t.Fatalf("seed checkpoint: %v", err)
		}
	}
}

// TestRenderTemplateFiltersByMetadata 条件满足时章节与检查点全部显示
func TestRenderTemplateFiltersByMetadata(t *testing.T) {
	env := setupTemplateTest(t)
	token := testutil.DefaultTestToken()
	seedConditionalTemplate(t, env, "tpl-cond")

	body := map[string]interface{}{
		"metadata": map[string]interface{}{"material": "aluminum"},
	}
	w := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/mes/qc-templates/tpl-cond/render", body, token)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	data := testutil.ParseResponse(w)["data"].(map[string]interface{})
	sections := data["sections"].([]interface{})
	if len(sections) != 2 {
		t.Fatalf("aluminum should see 2 sections, got %d", len(sections))
	}
	general := sections[0].(map[string]interface{})
	if len(general["checkpoints"].([]interface{})) != 2 {
		t.Errorf("aluminum should see both general checkpoints")
	}
}

func TestRenderTemplateHidesUnmatchedSections(t *testing.T) {
	env := setupTemplateTest(t)
	token := testutil.DefaultTestToken()
	seedConditionalTemplate(t, env, "tpl-hide")

	body := map[string]interface{}{
		"metadata": map[string]interface{}{"material": "plastic"},
	}
	w := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/mes/qc-templates/tpl-hide/render", body, token)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	data := testutil.ParseResponse(w)["data"].(map[string]interface{})
	sections := data["sections"].([]interface{})
	if len(sections) != 1 {
		t.Fatalf("plastic should only see the general section, got %d sections", len(sections))
	}
	general := sections[0].(map[string]interface{})
	if general["name"] != "通用检查" {
		t.Errorf("unexpected visible section: %v", general["name"])
	}
	checkpoints := general["checkpoints"].([]interface{})
	if len(checkpoints) != 1 {
		t.Fatalf("plastic should see 1 checkpoint in general section, got %d", len(checkpoints))
	}
	if checkpoints[0].(map[string]interface{})["name"] != "尺寸检查" {
		t.Errorf("unexpected visible checkpoint: %v", checkpoints[0])
	}
}

func TestRenderTemplateEmptyMetadataHidesConditional(t *testing.T) {
	env := setupTemplateTest(t)
	token := testutil.DefaultTestToken()
	seedConditionalTemplate(t, env, "tpl-empty")

	body := map[string]interface{}{"metadata": map[string]interface{}{}}
	w := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/mes/qc-templates/tpl-empty/render", body, token)
	data := testutil.ParseResponse(w)["data"].(map[string]interface{})
	sections := data["sections"].([]interface{})
	if len(sections) != 1 {
		t.Errorf("empty metadata should hide conditional sections, got %d", len(sections))
	}
}

func TestTemplateCreateAndAddStructure(t *testing.T) {
	env := setupTemplateTest(t)
	token := testutil.DefaultTestToken()

	body := map[string]interface{}{"code": "QC-NEW-001", "name": "出货检验", "category": "production"}
	w := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/mes/qc-templates", body, token)
	if w.Code != http.StatusCreated {
		t.Fatalf("create template: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	tplID := testutil.ParseResponse(w)["data"].(map[string]interface{})["id"].(string)

	body = map[string]interface{}{"section_number": 1, "name": "包装检查"}
	w = testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/mes/qc-templates/"+tplID+"/sections", body, token)
	if w.Code != http.StatusCreated {
		t.Fatalf("add section: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	secID := testutil.ParseResponse(w)["data"].(map[string]interface{})["id"].(string)

	body = map[string]interface{}{"display_order": 1, "name": "外箱标签", "requires_photo": true}
	w = testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/mes/qc-template-sections/"+secID+"/checkpoints", body, token)
	if w.Code != http.StatusCreated {
		t.Fatalf("add checkpoint: expected 201, got %d: %s", w.Code, w.Body.String())
	}

	// 详情返回完整结构
	w = testutil.DoRequest(env.Router, http.MethodGet, "/api/v1/mes/qc-templates/"+tplID, nil, token)
	data := testutil.ParseResponse(w)["data"].(map[string]interface{})
	sections := data["sections"].([]interface{})
	if len(sections) != 1 {
		t.Fatalf("expected 1 section in detail, got %d", len(sections))
	}
	if len(sections[0].(map[string]interface{})["checkpoints"].([]interface{})) != 1 {
		t.Error("expected 1 checkpoint in section detail")
	}
}

func TestTemplateArchive(t *testing.T) {
	env := setupTemplateTest(t)
	token := testutil.DefaultTestToken()
	seedConditionalTemplate(t, env, "tpl-arch")

	body := map[string]interface{}{"status": "archived"}
	w := testutil.DoRequest(env.Router, http.MethodPut, "/api/v1/mes/qc-templates/tpl-arch", body, token)
	if w.Code != http.StatusOK {
		t.Fatalf("archive: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	data := testutil.ParseResponse(w)["data"].(map[string]interface{})
	if data["status"] != "archived" {
		t.Errorf("expected archived, got %v", data["status"])
	}
}
