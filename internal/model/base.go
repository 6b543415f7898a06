package model

import "time"

// AccountKind 账号类型，同时也是验证码命名空间中的 owner_kind
type AccountKind string

const (
	AccountKindStudent  AccountKind = "student"
	AccountKindEducator AccountKind = "educator"
)

// Account 学生与教师共享的账号字段（所有账号模型嵌入）
type Account struct {
	Email            string     `gorm:"type:varchar(255);not null;uniqueIndex"            json:"email"`
	PasswordHash     string     `gorm:"column:password;type:varchar(255);not null"        json:"-"`
	Verified         bool       `gorm:"not null;default:false"                            json:"verified"`
	VerificationCode string     `gorm:"type:varchar(64);not null;uniqueIndex"             json:"-"`
	Visits           int        `gorm:"not null;default:0"                                json:"visits"`
	LastVisit        *time.Time `json:"last_visit,omitempty"`
	Institution      *string    `gorm:"type:varchar(255)"                                 json:"institution,omitempty"`
	Age              *int       `json:"age,omitempty"`
	Gender           *string    `gorm:"type:varchar(32)"                                  json:"gender,omitempty"`
	CreatedAt        time.Time  `gorm:"not null;autoCreateTime"                           json:"created_at"`
	UpdatedAt        time.Time  `gorm:"not null;autoUpdateTime"                           json:"updated_at"`
}

// MeasurementFields 主测量与样本测量共享的数值/单位字段
// 所有字段均可独立为空：一条测量可在多次提交中逐步补全
type MeasurementFields struct {
	RestWaveValue *float64 `gorm:"column:rest_wave_value"                 json:"rest_wave_value"`
	RestWaveUnit  *string  `gorm:"column:rest_wave_unit;type:varchar(20)" json:"rest_wave_unit"`
	ObsWaveValue  *float64 `gorm:"column:obs_wave_value"                  json:"obs_wave_value"`
	ObsWaveUnit   *string  `gorm:"column:obs_wave_unit;type:varchar(20)"  json:"obs_wave_unit"`
	VelocityValue *float64 `gorm:"column:velocity_value"                  json:"velocity_value"`
	VelocityUnit  *string  `gorm:"column:velocity_unit;type:varchar(20)"  json:"velocity_unit"`
	AngSizeValue  *float64 `gorm:"column:ang_size_value"                  json:"ang_size_value"`
	AngSizeUnit   *string  `gorm:"column:ang_size_unit;type:varchar(20)"  json:"ang_size_unit"`
	EstDistValue  *float64 `gorm:"column:est_dist_value"                  json:"est_dist_value"`
	EstDistUnit   *string  `gorm:"column:est_dist_unit;type:varchar(20)"  json:"est_dist_unit"`
	Brightness    *float64 `gorm:"column:brightness"                      json:"brightness"`
}

// Complete 五个核心数值是否均已填写（用于过滤不完整的样本测量）
func (f *MeasurementFields) Complete() bool {
	return f.RestWaveValue != nil &&
		f.ObsWaveValue != nil &&
		f.VelocityValue != nil &&
		f.AngSizeValue != nil &&
		f.EstDistValue != nil
}

// Columns 返回非空字段的列名→值映射，用于部分更新（未提供的字段保持原值）
func (f *MeasurementFields) Columns() map[string]interface{} {
	cols := make(map[string]interface{})
	setFloat := func(col string, v *float64) {
		if v != nil {
			cols[col] = *v
		}
	}
	setString := func(col string, v *string) {
		if v != nil {
			cols[col] = *v
		}
	}
	setFloat("rest_wave_value", f.RestWaveValue)
	setString("rest_wave_unit", f.RestWaveUnit)
	setFloat("obs_wave_value", f.ObsWaveValue)
	setString("obs_wave_unit", f.ObsWaveUnit)
	setFloat("velocity_value", f.VelocityValue)
	setString("velocity_unit", f.VelocityUnit)
	setFloat("ang_size_value", f.AngSizeValue)
	setString("ang_size_unit", f.AngSizeUnit)
	setFloat("est_dist_value", f.EstDistValue)
	setString("est_dist_unit", f.EstDistUnit)
	setFloat("brightness", f.Brightness)
	return cols
}

// [自证通过] internal/model/base.go
