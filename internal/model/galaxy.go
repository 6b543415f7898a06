package model

// Galaxy 星系表，对应 galaxies
// MarkedBad / SpecMarkedBad / TileloadMarkedBad 是累加计数器，只能原子自增
// SpecIsGood 为光谱审核结论，nil 表示尚未审核
type Galaxy struct {
	ID                uint     `gorm:"primaryKey"                             json:"id"`
	Name              string   `gorm:"type:varchar(255);not null;uniqueIndex" json:"name"`
	RA                *float64 `gorm:"column:ra"                              json:"ra,omitempty"`
	Decl              *float64 `gorm:"column:decl"                            json:"decl,omitempty"`
	Z                 *float64 `gorm:"column:z"                               json:"z,omitempty"`
	Type              *string  `gorm:"type:varchar(32)"                       json:"type,omitempty"`
	Element           *string  `gorm:"type:varchar(32)"                       json:"element,omitempty"`
	IsBad             bool     `gorm:"not null;default:false"                 json:"is_bad"`
	MarkedBad         int      `gorm:"not null;default:0"                     json:"marked_bad"`
	SpecMarkedBad     int      `gorm:"not null;default:0"                     json:"spec_marked_bad"`
	TileloadMarkedBad int      `gorm:"not null;default:0"                     json:"tileload_marked_bad"`
	IsSample          bool     `gorm:"not null;default:false"                 json:"is_sample"`
	SpecIsGood        *bool    `gorm:"column:spec_is_good"                    json:"spec_is_good"`
}

// TableName 指定表名
func (Galaxy) TableName() string { return "galaxies" }

// GalaxyCounter 可原子自增的星系计数列
type GalaxyCounter string

const (
	CounterMarkedBad         GalaxyCounter = "marked_bad"
	CounterSpecMarkedBad     GalaxyCounter = "spec_marked_bad"
	CounterTileloadMarkedBad GalaxyCounter = "tileload_marked_bad"
)

// Valid 仅允许白名单中的列名进入 SQL 表达式
func (c GalaxyCounter) Valid() bool {
	switch c {
	case CounterMarkedBad, CounterSpecMarkedBad, CounterTileloadMarkedBad:
		return true
	}
	return false
}
