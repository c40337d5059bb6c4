package feedback

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	gsqlite "github.com/glebarez/sqlite"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/Ufidtech/Qooa-Logistic/internal/auth"
	"github.com/Ufidtech/Qooa-Logistic/internal/order"
	"github.com/Ufidtech/Qooa-Logistic/internal/vendor"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(gsqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite memory DB: %v", err)
	}
	if err := db.AutoMigrate(&Feedback{}, &order.Order{}, &vendor.Vendor{}); err != nil {
		t.Fatalf("automigrate failed: %v", err)
	}
	return db
}

func seedDeliveredOrder(t *testing.T, db *gorm.DB, orderRef, vendorRef string) {
	t.Helper()
	v := vendor.Vendor{
		VendorRef: vendorRef, VendorName: "A", PhoneNumber: vendorRef,
		PasswordHash: "x", MarketCluster: "Mile 12", BusinessType: vendor.BusinessRetailer,
		Status: "active", QualityScore: 5.0,
	}
	if err := db.Create(&v).Error; err != nil {
		t.Fatalf("seed vendor: %v", err)
	}
	o := order.Order{
		OrderRef: orderRef, VendorRef: vendorRef, CrateQuantity: 1,
		PricePerCrate: decimal.NewFromInt(25000), TotalAmount: decimal.NewFromInt(25000),
		DeliveryDate: time.Now(), DeliveryTime: order.DeliveryMorning,
		Status: order.StatusDelivered,
	}
	if err := db.Create(&o).Error; err != nil {
		t.Fatalf("seed order: %v", err)
	}
}

func asVendor(c *gin.Context, vendorRef string) {
	c.Set(auth.ContextVendorKey, auth.CurrentVendor{ID: 1, VendorRef: vendorRef, Role: auth.RoleVendor})
}

func submit(t *testing.T, h *Handler, vendorRef string, payload map[string]interface{}) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	asVendor(c, vendorRef)
	c.Request = httptest.NewRequest(http.MethodPost, "/feedback", bytes.NewReader(body))
	h.Create(c)
	return w
}

func TestCreateFeedbackUpdatesQualityScore(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := setupTestDB(t)
	h := NewHandler(db)
	seedDeliveredOrder(t, db, "ORD00000001", "VEN00000001")

	w := submit(t, h, "VEN00000001", map[string]interface{}{
		"orderId": "ORD00000001",
		"rating":  3,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var v vendor.Vendor
	if err := db.Where("vendor_ref = ?", "VEN00000001").First(&v).Error; err != nil {
		t.Fatalf("reload vendor: %v", err)
	}
	if v.QualityScore != 3.0 {
		t.Fatalf("quality score must follow mean rating, got %v", v.QualityScore)
	}
}

func TestCreateFeedbackOnePerOrder(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := setupTestDB(t)
	h := NewHandler(db)
	seedDeliveredOrder(t, db, "ORD00000002", "VEN00000001")

	if w := submit(t, h, "VEN00000001", map[string]interface{}{"orderId": "ORD00000002", "rating": 5}); w.Code != http.StatusCreated {
		t.Fatalf("first submission failed: %d", w.Code)
	}
	w := submit(t, h, "VEN00000001", map[string]interface{}{"orderId": "ORD00000002", "rating": 1})
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate feedback, got %d", w.Code)
	}
}

func TestCreateFeedbackRequiresDeliveredOrder(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := setupTestDB(t)
	h := NewHandler(db)

	v := vendor.Vendor{VendorRef: "VEN00000001", VendorName: "A", PhoneNumber: "1",
		PasswordHash: "x", MarketCluster: "Mile 12", BusinessType: vendor.BusinessRetailer, Status: "active"}
	if err := db.Create(&v).Error; err != nil {
		t.Fatalf("seed vendor: %v", err)
	}
	o := order.Order{OrderRef: "ORD00000003", VendorRef: "VEN00000001", CrateQuantity: 1,
		PricePerCrate: decimal.NewFromInt(25000), TotalAmount: decimal.NewFromInt(25000),
		DeliveryDate: time.Now(), DeliveryTime: order.DeliveryMorning, Status: order.StatusInTransit}
	if err := db.Create(&o).Error; err != nil {
		t.Fatalf("seed order: %v", err)
	}

	w := submit(t, h, "VEN00000001", map[string]interface{}{"orderId": "ORD00000003", "rating": 4})
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 for undelivered order, got %d", w.Code)
	}
}

func TestCreateFeedbackRejectsBadRating(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := setupTestDB(t)
	h := NewHandler(db)

	for _, rating := range []int{0, 6, -1} {
		w := submit(t, h, "VEN00000001", map[string]interface{}{"orderId": "ORD-X", "rating": rating})
		if w.Code != http.StatusBadRequest {
			t.Fatalf("rating %d: expected 400, got %d", rating, w.Code)
		}
	}
}

func TestDamagePhotosOpenRefundPipeline(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := setupTestDB(t)
	h := NewHandler(db)
	seedDeliveredOrder(t, db, "ORD00000004", "VEN00000001")

	w := submit(t, h, "VEN00000001", map[string]interface{}{
		"orderId": "ORD00000004",
		"rating":  2,
		"damagePhotos": []map[string]interface{}{
			{"url": "https://cdn.example.com/crate1.jpg"},
		},
		"refundReason": "three crates squashed",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var fb Feedback
	if err := db.Where("order_ref = ?", "ORD00000004").First(&fb).Error; err != nil {
		t.Fatalf("feedback not persisted: %v", err)
	}
	if !fb.HasDamageReport {
		t.Fatal("damage photos must flag a damage report")
	}
	if fb.RefundStatus != RefundPending {
		t.Fatalf("damage report must open a pending refund, got %s", fb.RefundStatus)
	}
}

func TestRespondMovesRefundAlong(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := setupTestDB(t)
	h := NewHandler(db)

	fb := Feedback{OrderRef: "ORD00000005", VendorRef: "VEN00000001", Rating: 2,
		HasDamageReport: true, RefundStatus: RefundPending}
	if err := db.Create(&fb).Error; err != nil {
		t.Fatalf("seed feedback: %v", err)
	}

	amount := 25000.0
	body, _ := json.Marshal(map[string]interface{}{
		"response":     "Refund approved, sorry for the damage",
		"refundStatus": RefundApproved,
		"refundAmount": amount,
	})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Params = gin.Params{{Key: "id", Value: fmt.Sprint(fb.ID)}}
	c.Request = httptest.NewRequest(http.MethodPut, "/feedback/1/respond", bytes.NewReader(body))
	h.Respond(c)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var got Feedback
	db.First(&got, fb.ID)
	if got.RefundStatus != RefundApproved {
		t.Fatalf("refund status not advanced: %s", got.RefundStatus)
	}
	if got.RefundAmount == nil || *got.RefundAmount != amount {
		t.Fatalf("refund amount not recorded: %v", got.RefundAmount)
	}
	if got.AdminResponse == nil || got.AdminRespondedAt == nil {
		t.Fatal("admin response not recorded")
	}
}

func TestListAllDamageFilter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := setupTestDB(t)
	h := NewHandler(db)

	rows := []Feedback{
		{OrderRef: "ORD1", VendorRef: "VEN1", Rating: 5, RefundStatus: RefundNone},
		{OrderRef: "ORD2", VendorRef: "VEN1", Rating: 2, HasDamageReport: true, RefundStatus: RefundPending},
	}
	for i := range rows {
		if err := db.Create(&rows[i]).Error; err != nil {
			t.Fatalf("seed feedback: %v", err)
		}
	}

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/feedback?damageOnly=true", nil)
	h.ListAll(c)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Data []Feedback `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Data) != 1 || resp.Data[0].OrderRef != "ORD2" {
		t.Fatalf("expected only the damage report, got %+v", resp.Data)
	}
}
