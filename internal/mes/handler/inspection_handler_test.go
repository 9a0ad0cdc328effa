package handler

import (
	"net/http"
	"testing"

	"github.com/bitfantasy/nimo-mes/internal/mes/entity"
	"github.com/bitfantasy/nimo-mes/internal/mes/repository"
	"github.com/bitfantasy/nimo-mes/internal/mes/service"
	"github.com/bitfantasy/nimo-mes/internal/mes/testutil"
)

func setupInspectionTest(t *testing.T) *testutil.TestEnv {
	t.Helper()
	db := testutil.SetupTestDB(t)

	inspectionRepo := repository.NewInspectionRepository(db)
	templateRepo := repository.NewTemplateRepository(db)
	productionRepo := repository.NewProductionRepository(db)
	activityLogRepo := repository.NewActivityLogRepository(db)

	// 测试环境不接redis，幂等只靠数据库约束
	svc := service.NewInspectionService(inspectionRepo, templateRepo, productionRepo, nil)
	svc.SetActivityLogRepo(activityLogRepo)
	h := NewInspectionHandler(svc)

	router := testutil.SetupRouter()
	api := testutil.AuthGroup(router, "/api/v1/mes")
	api.GET("/inspections", h.ListInspections)
	api.POST("/inspections", h.StartInspection)
	api.GET("/inspections/rework", h.GetReworkInspection)
	api.GET("/inspections/:id", h.GetInspection)
	api.GET("/inspections/:id/progress", h.GetProgress)
	api.GET("/inspections/:id/validate-can-pass", h.ValidateCanPass)
	api.POST("/inspections/:id/submit", h.SubmitInspection)
	api.GET("/inspections/:id/section-results", h.GetSectionResults)
	api.POST("/inspections/:id/sections/:sectionId/batch-pass", h.BatchPassSection)
	api.POST("/inspections/:id/sections/:sectionId/complete", h.CompleteSection)
	api.GET("/inspections/:id/checkpoint-results", h.GetCheckpointResults)
	api.POST("/inspections/:id/checkpoint-results", h.SubmitCheckpointResult)

	return &testutil.TestEnv{DB: db, Router: router, T: t}
}

func startTestInspection(t *testing.T, env *testutil.TestEnv, token, itemID, templateID, idemKey string) string {
	t.Helper()
	body := map[string]interface{}{
		"production_item_id": itemID,
		"template_id":        templateID,
		"idempotency_key":    idemKey,
	}
	w := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/mes/inspections", body, token)
	if w.Code != http.StatusCreated {
		t.Fatalf("start inspection: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	resp := testutil.ParseResponse(w)
	return resp["data"].(map[string]interface{})["id"].(string)
}

// TestStartInspectionIdempotency 同一幂等键重复发起返回首次创建的检验
func TestStartInspectionIdempotency(t *testing.T) {
	env := setupInspectionTest(t)
	token := testutil.DefaultTestToken()

	testutil.SeedTemplate(t, env.DB, "tpl-idem", 3)
	item := testutil.SeedProductionItem(t, env.DB, "item-idem", nil)

	body := map[string]interface{}{
		"production_item_id": item.ID,
		"template_id":        "tpl-idem",
		"idempotency_key":    "idem-key-001",
	}

	w := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/mes/inspections", body, token)
	if w.Code != http.StatusCreated {
		t.Fatalf("first start: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	firstID := testutil.ParseResponse(w)["data"].(map[string]interface{})["id"].(string)

	// 重复请求：200，返回同一检验
	w = testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/mes/inspections", body, token)
	if w.Code != http.StatusOK {
		t.Fatalf("repeat start: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	secondID := testutil.ParseResponse(w)["data"].(map[string]interface{})["id"].(string)
	if firstID != secondID {
		t.Errorf("idempotent retry should return the same inspection, got %s and %s", firstID, secondID)
	}

	// 章节跟踪行只生成一次
	var count int64
	env.DB.Model(&entity.QCSectionResult{}).Where("inspection_id = ?", firstID).Count(&count)
	if count != 3 {
		t.Errorf("expected 3 section result rows, got %d", count)
	}

	// 主体进入检验中
	var got entity.ProductionItem
	env.DB.First(&got, "id = ?", item.ID)
	if got.QCStatus != entity.QCStatusInQC {
		t.Errorf("expected item qc_status in_qc, got %s", got.QCStatus)
	}
}

func TestStartInspectionRequiresExactlyOneSubject(t *testing.T) {
	env := setupInspectionTest(t)
	token := testutil.DefaultTestToken()

	testutil.SeedTemplate(t, env.DB, "tpl-xor", 1)

	// 主体缺失
	body := map[string]interface{}{
		"template_id":     "tpl-xor",
		"idempotency_key": "idem-xor-001",
	}
	w := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/mes/inspections", body, token)
	if w.Code != http.StatusPreconditionFailed {
		t.Fatalf("expected 412 when no subject given, got %d: %s", w.Code, w.Body.String())
	}
	resp := testutil.ParseResponse(w)
	if resp["code"].(float64) != 41200 {
		t.Errorf("expected business code 41200, got %v", resp["code"])
	}
}

func TestStartInspectionUnknownTemplate(t *testing.T) {
	env := setupInspectionTest(t)
	token := testutil.DefaultTestToken()

	item := testutil.SeedProductionItem(t, env.DB, "item-no-tpl", nil)
	body := map[string]interface{}{
		"production_item_id": item.ID,
		"template_id":        "no-such-template",
		"idempotency_key":    "idem-tpl-404",
	}
	w := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/mes/inspections", body, token)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown template, got %d", w.Code)
	}
}

// TestInspectionProgress 完成度按全部章节计数，整章通过推进完成度
func TestInspectionProgress(t *testing.T) {
	env := setupInspectionTest(t)
	token := testutil.DefaultTestToken()

	tpl := testutil.SeedTemplate(t, env.DB, "tpl-prog", 3)
	item := testutil.SeedProductionItem(t, env.DB, "item-prog", nil)
	inspID := startTestInspection(t, env, token, item.ID, tpl.ID, "idem-prog-001")

	w := testutil.DoRequest(env.Router, http.MethodGet, "/api/v1/mes/inspections/"+inspID+"/progress", nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	data := testutil.ParseResponse(w)["data"].(map[string]interface{})
	if data["total_sections"].(float64) != 3 || data["percent_complete"].(float64) != 0 {
		t.Fatalf("expected 3 sections at 0%%, got %v", data)
	}

	// 整章通过第一章
	w = testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/mes/inspections/"+inspID+"/sections/tpl-prog-sec-1/batch-pass", nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("batch-pass: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	passed := testutil.ParseResponse(w)["data"].(map[string]interface{})["passed_checkpoints"].(float64)
	if passed != 2 {
		t.Errorf("expected 2 checkpoints passed, got %v", passed)
	}

	w = testutil.DoRequest(env.Router, http.MethodGet, "/api/v1/mes/inspections/"+inspID+"/progress", nil, token)
	data = testutil.ParseResponse(w)["data"].(map[string]interface{})
	if data["completed_sections"].(float64) != 1 {
		t.Errorf("expected 1 completed section, got %v", data["completed_sections"])
	}
	// round(1/3*100) = 33
	if data["percent_complete"].(float64) != 33 {
		t.Errorf("expected 33%% complete, got %v", data["percent_complete"])
	}
}

// TestCheckpointResultUpsert 同一检查点重复提交覆盖而不是新增
func TestCheckpointResultUpsert(t *testing.T) {
	env := setupInspectionTest(t)
	token := testutil.DefaultTestToken()

	tpl := testutil.SeedTemplate(t, env.DB, "tpl-up", 1)
	item := testutil.SeedProductionItem(t, env.DB, "item-up", nil)
	inspID := startTestInspection(t, env, token, item.ID, tpl.ID, "idem-up-001")

	cpID := "tpl-up-cp-1-1"
	body := map[string]interface{}{"checkpoint_id": cpID, "status": "fail", "note": "尺寸超差"}
	w := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/mes/inspections/"+inspID+"/checkpoint-results", body, token)
	if w.Code != http.StatusOK {
		t.Fatalf("submit checkpoint: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	// 覆盖为pass
	body = map[string]interface{}{"checkpoint_id": cpID, "status": "pass"}
	w = testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/mes/inspections/"+inspID+"/checkpoint-results", body, token)
	if w.Code != http.StatusOK {
		t.Fatalf("resubmit checkpoint: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	data := testutil.ParseResponse(w)["data"].(map[string]interface{})
	if data["status"] != "pass" {
		t.Errorf("expected overwritten status pass, got %v", data["status"])
	}

	var count int64
	env.DB.Model(&entity.QCCheckpointResult{}).
		Where("inspection_id = ? AND checkpoint_id = ?", inspID, cpID).Count(&count)
	if count != 1 {
		t.Errorf("expected a single result row after resubmit, got %d", count)
	}

	// 所属章节从pending推进到in_progress
	var sr entity.QCSectionResult
	env.DB.First(&sr, "inspection_id = ? AND section_id = ?", inspID, "tpl-up-sec-1")
	if sr.Status != entity.SectionResultStatusInProgress {
		t.Errorf("expected section in_progress after checkpoint submit, got %s", sr.Status)
	}
}

func TestCheckpointIssueDefaultsMinorSeverity(t *testing.T) {
	env := setupInspectionTest(t)
	token := testutil.DefaultTestToken()

	tpl := testutil.SeedTemplate(t, env.DB, "tpl-sev", 1)
	item := testutil.SeedProductionItem(t, env.DB, "item-sev", nil)
	inspID := startTestInspection(t, env, token, item.ID, tpl.ID, "idem-sev-001")

	body := map[string]interface{}{"checkpoint_id": "tpl-sev-cp-1-1", "status": "issue"}
	w := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/mes/inspections/"+inspID+"/checkpoint-results", body, token)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	data := testutil.ParseResponse(w)["data"].(map[string]interface{})
	if data["severity"] != entity.SeverityMinor {
		t.Errorf("issue without severity should default to minor, got %v", data["severity"])
	}

	// 非issue状态不保留严重度
	body = map[string]interface{}{"checkpoint_id": "tpl-sev-cp-1-2", "status": "pass", "severity": "critical"}
	w = testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/mes/inspections/"+inspID+"/checkpoint-results", body, token)
	data = testutil.ParseResponse(w)["data"].(map[string]interface{})
	if data["severity"] != "" {
		t.Errorf("severity should be cleared for non-issue status, got %v", data["severity"])
	}
}

// TestValidateCanPassBlockers 预检列出全部阻塞项
func TestValidateCanPassBlockers(t *testing.T) {
	env := setupInspectionTest(t)
	token := testutil.DefaultTestToken()

	tpl := testutil.SeedTemplate(t, env.DB, "tpl-vp", 2)
	item := testutil.SeedProductionItem(t, env.DB, "item-vp", nil)
	inspID := startTestInspection(t, env, token, item.ID, tpl.ID, "idem-vp-001")

	// 致命问题
	body := map[string]interface{}{"checkpoint_id": "tpl-vp-cp-1-1", "status": "issue", "severity": "critical"}
	w := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/mes/inspections/"+inspID+"/checkpoint-results", body, token)
	if w.Code != http.StatusOK {
		t.Fatalf("submit issue: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	w = testutil.DoRequest(env.Router, http.MethodGet, "/api/v1/mes/inspections/"+inspID+"/validate-can-pass", nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("validate: expected 200, got %d", w.Code)
	}
	data := testutil.ParseResponse(w)["data"].(map[string]interface{})
	if data["can_pass"].(bool) {
		t.Error("expected can_pass false with open critical issue and unfinished sections")
	}
	blockers := data["blockers"].([]interface{})
	// 致命问题 + 未完成章节两类阻塞
	if len(blockers) != 2 {
		t.Errorf("expected 2 blockers, got %v", blockers)
	}
}

func TestValidateCanPassAllClear(t *testing.T) {
	env := setupInspectionTest(t)
	token := testutil.DefaultTestToken()

	tpl := testutil.SeedTemplate(t, env.DB, "tpl-ok", 2)
	item := testutil.SeedProductionItem(t, env.DB, "item-ok", nil)
	inspID := startTestInspection(t, env, token, item.ID, tpl.ID, "idem-ok-001")

	for _, sec := range []string{"tpl-ok-sec-1", "tpl-ok-sec-2"} {
		w := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/mes/inspections/"+inspID+"/sections/"+sec+"/batch-pass", nil, token)
		if w.Code != http.StatusOK {
			t.Fatalf("batch-pass %s: expected 200, got %d", sec, w.Code)
		}
	}

	w := testutil.DoRequest(env.Router, http.MethodGet, "/api/v1/mes/inspections/"+inspID+"/validate-can-pass", nil, token)
	data := testutil.ParseResponse(w)["data"].(map[string]interface{})
	if !data["can_pass"].(bool) {
		t.Errorf("expected can_pass true, blockers: %v", data["blockers"])
	}
}

// TestSubmitPassedBlockedByCriticalIssue 存在致命问题时判定通过被412拒绝
func TestSubmitPassedBlockedByCriticalIssue(t *testing.T) {
	env := setupInspectionTest(t)
	token := testutil.DefaultTestToken()

	tpl := testutil.SeedTemplate(t, env.DB, "tpl-blk", 1)
	item := testutil.SeedProductionItem(t, env.DB, "item-blk", nil)
	inspID := startTestInspection(t, env, token, item.ID, tpl.ID, "idem-blk-001")

	body := map[string]interface{}{"checkpoint_id": "tpl-blk-cp-1-1", "status": "issue", "severity": "critical"}
	testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/mes/inspections/"+inspID+"/checkpoint-results", body, token)

	submit := map[string]interface{}{"final_status": "passed"}
	w := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/mes/inspections/"+inspID+"/submit", submit, token)
	if w.Code != http.StatusPreconditionFailed {
		t.Fatalf("expected 412, got %d: %s", w.Code, w.Body.String())
	}

	// 检验仍在进行中
	var got entity.QCInspection
	env.DB.First(&got, "id = ?", inspID)
	if got.Status != entity.QCInspectionStatusInProgress {
		t.Errorf("inspection should stay in_progress after rejected submit, got %s", got.Status)
	}
}

// TestSubmitFailedCascadesAndRework 判定不通过级联主体并可从返工视图查到
func TestSubmitFailedCascadesAndRework(t *testing.T) {
	env := setupInspectionTest(t)
	token := testutil.DefaultTestToken()

	tpl := testutil.SeedTemplate(t, env.DB, "tpl-rw", 1)
	item := testutil.SeedProductionItem(t, env.DB, "item-rw", nil)
	inspID := startTestInspection(t, env, token, item.ID, tpl.ID, "idem-rw-001")

	body := map[string]interface{}{"checkpoint_id": "tpl-rw-cp-1-1", "status": "issue", "severity": "major", "note": "表面划伤"}
	testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/mes/inspections/"+inspID+"/checkpoint-results", body, token)

	submit := map[string]interface{}{"final_status": "failed", "inspector_notes": "外观不良"}
	w := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/mes/inspections/"+inspID+"/submit", submit, token)
	if w.Code != http.StatusOK {
		t.Fatalf("submit failed: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	data := testutil.ParseResponse(w)["data"].(map[string]interface{})
	if data["status"] != entity.QCInspectionStatusFailed {
		t.Errorf("expected inspection failed, got %v", data["status"])
	}
	if data["completed_at"] == nil {
		t.Error("expected completed_at to be set")
	}

	// 主体级联为返工
	var gotItem entity.ProductionItem
	env.DB.First(&gotItem, "id = ?", item.ID)
	if gotItem.QCStatus != entity.QCStatusReworkRequired {
		t.Errorf("expected item rework_required, got %s", gotItem.QCStatus)
	}

	// 判定后不允许再提交检查点
	body = map[string]interface{}{"checkpoint_id": "tpl-rw-cp-1-1", "status": "pass"}
	w = testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/mes/inspections/"+inspID+"/checkpoint-results", body, token)
	if w.Code != http.StatusPreconditionFailed {
		t.Fatalf("expected 412 after final verdict, got %d", w.Code)
	}

	// 返工视图返回最近一次失败检验和问题清单
	w = testutil.DoRequest(env.Router, http.MethodGet, "/api/v1/mes/inspections/rework?production_item_id="+item.ID, nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("rework view: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	rework := testutil.ParseResponse(w)["data"].(map[string]interface{})
	inspection := rework["inspection"].(map[string]interface{})
	if inspection["id"] != inspID {
		t.Errorf("expected rework inspection %s, got %v", inspID, inspection["id"])
	}
	issues := rework["issue_results"].([]interface{})
	if len(issues) != 1 {
		t.Fatalf("expected 1 issue result, got %d", len(issues))
	}
	if issues[0].(map[string]interface{})["note"] != "表面划伤" {
		t.Errorf("unexpected issue note: %v", issues[0])
	}
}

// TestSubmitPassedCascadesPrototype 打样检验通过级联评审为approved
func TestSubmitPassedCascadesPrototype(t *testing.T) {
	env := setupInspectionTest(t)
	token := testutil.DefaultTestToken()

	testutil.SeedTemplate(t, env.DB, "tpl-proto", 1)
	proto := &entity.PrototypeProduction{
		ID:            "proto-001",
		PrototypeCode: "PT-proto-001",
		ProductName:   "测试打样",
		Round:         1,
		Status:        "in_progress",
		ReviewStatus:  entity.ReviewStatusNotStarted,
	}
	if err := env.DB.Create(proto).Error; err != nil {
		t.Fatalf("seed prototype: %v", err)
	}

	body := map[string]interface{}{
		"prototype_production_id": proto.ID,
		"template_id":             "tpl-proto",
		"idempotency_key":         "idem-proto-001",
	}
	w := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/mes/inspections", body, token)
	if w.Code != http.StatusCreated {
		t.Fatalf("start prototype inspection: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	inspID := testutil.ParseResponse(w)["data"].(map[string]interface{})["id"].(string)

	// 发起后进入评审中
	var gotProto entity.PrototypeProduction
	env.DB.First(&gotProto, "id = ?", proto.ID)
	if gotProto.ReviewStatus != entity.ReviewStatusInReview {
		t.Errorf("expected review_status in_review after start, got %s", gotProto.ReviewStatus)
	}

	w = testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/mes/inspections/"+inspID+"/sections/tpl-proto-sec-1/batch-pass", nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("batch-pass: expected 200, got %d", w.Code)
	}

	submit := map[string]interface{}{"final_status": "passed"}
	w = testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/mes/inspections/"+inspID+"/submit", submit, token)
	if w.Code != http.StatusOK {
		t.Fatalf("submit: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	env.DB.First(&gotProto, "id = ?", proto.ID)
	if gotProto.ReviewStatus != entity.ReviewStatusApproved {
		t.Errorf("expected review_status approved, got %s", gotProto.ReviewStatus)
	}
}

func TestReworkInspectionNotFound(t *testing.T) {
	env := setupInspectionTest(t)
	token := testutil.DefaultTestToken()

	testutil.SeedProductionItem(t, env.DB, "item-norw", nil)
	w := testutil.DoRequest(env.Router, http.MethodGet, "/api/v1/mes/inspections/rework?production_item_id=item-norw", nil, token)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 when no failed inspection exists, got %d", w.Code)
	}
}
