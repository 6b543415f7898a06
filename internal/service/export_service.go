package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// ── 导出模块业务错误 ──

var (
	ErrExportNoStories    = errors.New("该班级未挂载任何故事")
	ErrExportGenerateFail = errors.New("生成 Excel 文件失败")
)

// excel 工作表名最长 31 个字符
const maxSheetNameLen = 31

// ExportService 导出业务接口
//
// 花名册导出为 Excel (.xlsx)：每个故事一个 Sheet，每个学生一行
// 导出以 bytes.Buffer 返回，由 Handler 层设置响应头后写出
type ExportService interface {
	ExportRoster(ctx context.Context, classID uint) (*bytes.Buffer, string, error)
}

type exportService struct {
	roster  RosterService
	classes ClassService
	logger  *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(roster RosterService, classes ClassService, logger *zap.Logger) ExportService {
	return &exportService{roster: roster, classes: classes, logger: logger}
}

// ═══════════════════════════════════════════════════════════
// ExportRoster：导出班级花名册
// ═══════════════════════════════════════════════════════════
//
// 输出格式：
//   - Sheet 名为故事名（按字母序）
//   - 表头：学号 | 用户名 | 邮箱 | 进度(JSON)
//   - 已在班级但尚无进度的学生以 "-" 占位

func (s *exportService) ExportRoster(ctx context.Context, classID uint) (*bytes.Buffer, string, error) {
	// 1. 聚合花名册
	roster, err := s.roster.GetRosterInfo(ctx, classID)
	if err != nil {
		return nil, "", err
	}
	if len(roster) == 0 {
		return nil, "", ErrExportNoStories
	}

	// 2. 班级学生全集（无进度者也要出现在表中）
	students, err := s.classes.GetStudentsForClass(ctx, classID)
	if err != nil {
		return nil, "", err
	}

	storyNames := make([]string, 0, len(roster))
	for name := range roster {
		storyNames = append(storyNames, name)
	}
	sort.Strings(storyNames)

	// 3. 生成 Excel
	f := excelize.NewFile()
	defer f.Close()

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	sheets := sheetNames(storyNames)
	for i, story := range storyNames {
		sheet := sheets[i]
		if i == 0 {
			if err := f.SetSheetName("Sheet1", sheet); err != nil {
				return nil, "", s.generateFailed(err)
			}
		} else if _, err := f.NewSheet(sheet); err != nil {
			return nil, "", s.generateFailed(err)
		}

		f.SetColWidth(sheet, "A", "A", 10)
		f.SetColWidth(sheet, "B", "C", 28)
		f.SetColWidth(sheet, "D", "D", 80)

		for col, title := range []string{"student_id", "username", "email", "story_state"} {
			f.SetCellValue(sheet, cell(colName(col), 1), title)
		}
		f.SetCellStyle(sheet, "A1", "D1", headerStyle)

		states := make(map[uint]string, len(roster[story]))
		for _, st := range roster[story] {
			states[st.StudentID] = string(st.State)
		}

		row := 2
		for _, student := range students {
			state, ok := states[student.ID]
			if !ok {
				state = "-"
			}
			f.SetCellValue(sheet, cell("A", row), student.ID)
			f.SetCellValue(sheet, cell("B", row), student.Username)
			f.SetCellValue(sheet, cell("C", row), student.Email)
			f.SetCellValue(sheet, cell("D", row), state)
			row++
		}
	}
	f.SetActiveSheet(0)

	// 4. 写入 buffer
	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		return nil, "", s.generateFailed(err)
	}

	filename := fmt.Sprintf("roster_class_%d.xlsx", classID)
	return buf, filename, nil
}

func (s *exportService) generateFailed(err error) error {
	s.logger.Error("写入 Excel 失败", zap.Error(err))
	return ErrExportGenerateFail
}

// ── 辅助函数 ──

// sheetNames 按顺序生成工作表名，截断后重名（不区分大小写）的追加 ~2、~3
func sheetNames(stories []string) []string {
	used := make(map[string]bool, len(stories))
	names := make([]string, len(stories))
	for i, story := range stories {
		base := truncateRunes(story, maxSheetNameLen)
		name := base
		for n := 2; used[strings.ToLower(name)]; n++ {
			suffix := fmt.Sprintf("~%d", n)
			name = truncateRunes(base, maxSheetNameLen-len(suffix)) + suffix
		}
		used[strings.ToLower(name)] = true
		names[i] = name
	}
	return names
}

func truncateRunes(s string, n int) string {
	if r := []rune(s); len(r) > n {
		return string(r[:n])
	}
	return s
}

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
