package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/hitoshi/sleeplog/internal/model"
	"github.com/hitoshi/sleeplog/internal/sleep"
)

// maxRequestBodyBytes はリクエストボディの最大サイズ。
const maxRequestBodyBytes = 1 << 20

var validate = newValidator()

// newValidator はJSONのフィールド名で違反を報告するバリデーターを生成する。
// "clock" タグは "HH:mm" または "HH:mm:ss" 形式の時刻を受け付ける。
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	if err := v.RegisterValidation("clock", func(fl validator.FieldLevel) bool {
		_, err := model.ParseClockTime(fl.Field().String())
		return err == nil
	}); err != nil {
		panic(fmt.Sprintf("failed to register clock validation: %v", err))
	}
	return v
}

// violationMessages は "フィールド.タグ" ごとの違反メッセージ。
var violationMessages = map[string]string{
	"username.required":       "Username is required",
	"username.min":            "Username must be between 3 and 50 characters",
	"username.max":            "Username must be between 3 and 50 characters",
	"email.required":          "Email is required",
	"email.email":             "Email format is invalid",
	"sleepDate.required":      "Sleep date is required",
	"sleepDate.datetime":      "Sleep date must be in YYYY-MM-DD format",
	"bedtime.required":        "Bedtime is required",
	"bedtime.clock":           "Bedtime must be in HH:mm format",
	"wakeTime.required":       "Wake time is required",
	"wakeTime.clock":          "Wake time must be in HH:mm format",
	"morningFeeling.required": "Morning feeling is required",
	"morningFeeling.oneof":    "Morning feeling must be one of GOOD, OK, BAD",
}

// createSubscriberRequest はユーザー登録リクエスト。
type createSubscriberRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Email    string `json:"email" validate:"required,email"`
}

// createSleepLogRequest は睡眠記録作成リクエスト。
type createSleepLogRequest struct {
	SleepDate      string `json:"sleepDate" validate:"required,datetime=2006-01-02"`
	Bedtime        string `json:"bedtime" validate:"required,clock"`
	WakeTime       string `json:"wakeTime" validate:"required,clock"`
	MorningFeeling string `json:"morningFeeling" validate:"required,oneof=GOOD OK BAD"`
}

// decodeJSON はリクエストボディをdstにデコードする。
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return model.NewInvalidRequestError("Invalid request: malformed JSON body")
	}
	return nil
}

// validationError はvalidatorの違反をValidationエラーに変換する。
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("リクエストの検証に失敗しました: %w", err)
	}
	violations := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		violations = append(violations, fe.Field()+": "+violationMessage(fe))
	}
	return model.NewValidationError(violations)
}

func violationMessage(fe validator.FieldError) string {
	if msg, ok := violationMessages[fe.Field()+"."+fe.Tag()]; ok {
		return msg
	}
	return "failed on the '" + fe.Tag() + "' rule"
}

// bind はユーザー登録リクエストを検証する。前後の空白は取り除く。
func (req *createSubscriberRequest) bind() error {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if err := validate.Struct(req); err != nil {
		return validationError(err)
	}
	return nil
}

// bind は睡眠記録作成リクエストを検証し、サービス層の入力に変換する。
// sleepDateはtodayより後であってはならない。
func (req *createSleepLogRequest) bind(today model.Date) (sleep.CreateSleepLogInput, error) {
	if err := validate.Struct(req); err != nil {
		return sleep.CreateSleepLogInput{}, validationError(err)
	}

	// 形式は検証済み
	sleepDate, _ := model.ParseDate(req.SleepDate)
	bedtime, _ := model.ParseClockTime(req.Bedtime)
	wakeTime, _ := model.ParseClockTime(req.WakeTime)

	if sleepDate.After(today) {
		return sleep.CreateSleepLogInput{}, model.NewValidationError([]string{
			"sleepDate: Sleep date cannot be in the future",
		})
	}

	return sleep.CreateSleepLogInput{
		SleepDate:      sleepDate,
		Bedtime:        bedtime,
		WakeTime:       wakeTime,
		MorningFeeling: model.MorningFeeling(req.MorningFeeling),
	}, nil
}

// parseIDParam はパスパラメータを正の整数IDとして解析する。
func parseIDParam(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, model.NewValidationError([]string{name + ": must be a positive integer"})
	}
	return id, nil
}
