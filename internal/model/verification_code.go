package model

import "time"

// VerificationCode 验证码登记表，对应 verification_codes
// 学生与教师的验证码共享同一命名空间，主键即唯一约束
type VerificationCode struct {
	Code      string      `gorm:"type:varchar(64);primaryKey" json:"code"`
	OwnerKind AccountKind `gorm:"type:varchar(16);not null"   json:"owner_kind"`
	CreatedAt time.Time   `gorm:"not null;autoCreateTime"     json:"created_at"`
}

// TableName 指定表名
func (VerificationCode) TableName() string { return "verification_codes" }
