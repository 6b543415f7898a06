package model

// Student 学生表，对应 students
type Student struct {
	ID       uint   `gorm:"primaryKey"                  json:"id"`
	Username string `gorm:"type:varchar(50);not null"   json:"username"`
	Account
}

// TableName 指定表名
func (Student) TableName() string { return "students" }

// Educator 教师表，对应 educators
type Educator struct {
	ID        uint   `gorm:"primaryKey"                 json:"id"`
	FirstName string `gorm:"type:varchar(100);not null" json:"first_name"`
	LastName  string `gorm:"type:varchar(100);not null" json:"last_name"`
	Account
}

// TableName 指定表名
func (Educator) TableName() string { return "educators" }

// GetID / GetAccount 让账号流程可统一处理学生与教师
func (s *Student) GetID() uint { return s.ID }
func (s *Student) GetAccount() *Account { return &s.Account }

func (e *Educator) GetID() uint { return e.ID }
func (e *Educator) GetAccount() *Account { return &e.Account }

// StudentIdentity 花名册中嵌入的最小学生身份信息
type StudentIdentity struct {
	ID       uint   `gorm:"primaryKey" json:"-"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// TableName 指定表名
func (StudentIdentity) TableName() string { return "students" }
