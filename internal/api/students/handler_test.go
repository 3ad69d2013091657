package students

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"studio-app/database"
	"studio-app/internal/domain/students"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func setupStudents(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	h := NewHandler(db)
	r := gin.New()
	r.POST("/students", h.Create)
	r.GET("/students", h.List)
	r.GET("/students/:id", h.Get)
	r.PUT("/students/:id", h.Update)
	r.DELETE("/students/:id", h.Delete)
	return r, db
}

func doJSON(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCreateStudent(t *testing.T) {
	r, db := setupStudents(t)

	w := doJSON(r, "POST", "/students", `{
		"firstName": "Maya",
		"lastName": "Lefèvre",
		"email": "maya@example.com",
		"dateOfBirth": "2012-05-14",
		"program": "Ballet",
		"emergencyContact": {"name": "Ana", "phone": "555-0101", "relationship": "mother"}
	}`)
	require.Equal(t, http.StatusCreated, w.Code)

	var created students.Student
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "Active", created.Status)
	assert.Equal(t, "none", created.SubscriptionStatus)
	require.NotNil(t, created.DateOfBirth)
	assert.Equal(t, "2012-05-14", created.DateOfBirth.Format("2006-01-02"))

	var got students.Student
	require.NoError(t, db.First(&got, "id = ?", created.ID).Error)
	require.NotNil(t, got.EmergencyContact)
	assert.Equal(t, "Ana", got.EmergencyContact.Name)
}

func TestCreateStudent_DuplicateEmailConflicts(t *testing.T) {
	r, _ := setupStudents(t)

	body := `{"firstName": "Maya", "lastName": "L", "email": "maya@example.com"}`
	require.Equal(t, http.StatusCreated, doJSON(r, "POST", "/students", body).Code)

	w := doJSON(r, "POST", "/students", body)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestCreateStudent_PasswordIsHashedAndHidden(t *testing.T) {
	r, db := setupStudents(t)

	w := doJSON(r, "POST", "/students", `{
		"firstName": "Maya", "lastName": "L",
		"email": "maya@example.com", "password": "dance1234"
	}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.NotContains(t, w.Body.String(), "dance1234")

	var got students.Student
	require.NoError(t, db.First(&got, "email = ?", "maya@example.com").Error)
	require.NotNil(t, got.Password)
	assert.NotEqual(t, "dance1234", *got.Password)
	assert.True(t, strings.HasPrefix(*got.Password, "$2"))
}

func TestUpdateStudent(t *testing.T) {
	r, db := setupStudents(t)

	student := students.Student{FirstName: "Maya", LastName: "L", Email: "maya@example.com"}
	require.NoError(t, db.Create(&student).Error)

	w := doJSON(r, "PUT", "/students/"+student.ID, `{
		"firstName": "Maya", "lastName": "Lefèvre",
		"email": "maya@example.com", "status": "Inactive"
	}`)
	require.Equal(t, http.StatusOK, w.Code)

	var got students.Student
	require.NoError(t, db.First(&got, "id = ?", student.ID).Error)
	assert.Equal(t, "Lefèvre", got.LastName)
	assert.Equal(t, "Inactive", got.Status)
}

func TestUpdateStudent_ConflictWithOtherStudent(t *testing.T) {
	r, db := setupStudents(t)

	require.NoError(t, db.Create(&students.Student{FirstName: "A", LastName: "A", Email: "a@example.com"}).Error)
	b := students.Student{FirstName: "B", LastName: "B", Email: "b@example.com"}
	require.NoError(t, db.Create(&b).Error)

	w := doJSON(r, "PUT", "/students/"+b.ID, `{
		"firstName": "B", "lastName": "B", "email": "a@example.com"
	}`)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestDeleteStudent(t *testing.T) {
	r, db := setupStudents(t)

	student := students.Student{FirstName: "Maya", LastName: "L", Email: "maya@example.com"}
	require.NoError(t, db.Create(&student).Error)

	assert.Equal(t, http.StatusOK, doJSON(r, "DELETE", "/students/"+student.ID, "").Code)
	assert.Equal(t, http.StatusNotFound, doJSON(r, "DELETE", "/students/"+student.ID, "").Code)
}

func TestListStudents_FilterByStatus(t *testing.T) {
	r, db := setupStudents(t)

	require.NoError(t, db.Create(&students.Student{FirstName: "A", LastName: "A", Email: "a@example.com", Status: "Active"}).Error)
	require.NoError(t, db.Create(&students.Student{FirstName: "B", LastName: "B", Email: "b@example.com", Status: "Inactive"}).Error)

	w := doJSON(r, "GET", "/students?status=Active", "")
	require.Equal(t, http.StatusOK, w.Code)

	var list []students.Student
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "a@example.com", list[0].Email)
}
