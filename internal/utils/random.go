package utils

import (
	"math"
	"math/rand"
	"time"

	"github.com/mozillazg/go-pinyin"
	"github.com/sysu-ecnc-dev/labor-planner/backend/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

var commonSurnames = []string{
	"王", "李", "张", "刘", "陈", "杨", "赵", "黄", "周", "吴",
	"徐", "孙", "胡", "朱", "高", "林", "何", "郭", "马", "罗",
}
var commonNameCharacters = []string{
	"伟", "强", "芳", "敏", "静", "丽", "刚", "杰", "娟", "勇",
	"艳", "涛", "明", "军", "磊", "洋", "勇", "霞", "飞", "玲",
	"超", "华", "平", "辉", "梅", "鑫", "龙", "鹏", "玉", "斌",
	"庆", "建", "丹", "彬", "凤", "旭", "宁", "乐", "成", "欣",
}

func GenerateRandomChineseName() string {
	surname := commonSurnames[rand.Intn(len(commonSurnames))]
	nameLength := rand.Intn(2) + 1
	name := ""

	for i := 0; i < nameLength; i++ {
		name += commonNameCharacters[rand.Intn(len(commonNameCharacters))]
	}
	return surname + name
}

var roles = []domain.Role{
	domain.RolePlanner,
	domain.RoleAdmin,
}

func GenerateRandomRole() domain.Role {
	return roles[rand.Intn(len(roles))]
}

var digits = "0123456789"

func GenerateUsernameFromChineseName(chineseName string) string {
	pinyinArray := pinyin.LazyConvert(chineseName, nil)
	username := ""

	for _, pinyin := range pinyinArray {
		length := rand.Intn(len(pinyin)) + 1
		username += pinyin[:length]
	}

	digitsLength := rand.Intn(3) + 1
	for i := 0; i < digitsLength; i++ {
		username += string(digits[rand.Intn(len(digits))])
	}

	return username
}

func GenerateRandomUser(password string, emailDomainName string) (*domain.User, error) {
	fullName := GenerateRandomChineseName()
	username := GenerateUsernameFromChineseName(fullName)
	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Username:     username,
		PasswordHash: string(passwordHash),
		FullName:     fullName,
		Email:        username + "@" + emailDomainName,
		Role:         GenerateRandomRole(),
	}

	return user, nil
}

var letters = []rune("abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#$%^&*")

func GenerateRandomPassword(length int) string {
	random_password := make([]rune, length)
	for i := range random_password {
		random_password[i] = letters[rand.Intn(len(letters))]
	}
	return string(random_password)
}

func GenerateRandomID(letterLength int, digitLength int) string {
	random_id := make([]rune, letterLength+digitLength)
	for i := range random_id {
		if i < letterLength {
			random_id[i] = letters[rand.Intn(len(letters))]
		} else {
			random_id[i] = rune(digits[rand.Intn(len(digits))])
		}
	}
	return string(random_id)
}

// 仓库每周的作业量大致规律：周一最忙，周末最闲
var weekdayFactors = map[time.Weekday]float64{
	time.Monday:    1.15,
	time.Tuesday:   1.05,
	time.Wednesday: 1.00,
	time.Thursday:  1.00,
	time.Friday:    1.10,
	time.Saturday:  0.80,
	time.Sunday:    0.70,
}

/**
 * 生成一段随机的用工历史
 * workersNeeded = (base + trend * i) * weekdayFactor + noise
 * 其中 noise 服从均值为 0、标准差为 base 的 5% 的正态分布，结果四舍五入到整数且不小于 0
 */
func GenerateRandomLaborHistory(start time.Time, days int, base float64, trend float64) []domain.LaborHistoryPoint {
	points := make([]domain.LaborHistoryPoint, 0, days)

	for i := 0; i < days; i++ {
		date := start.AddDate(0, 0, i)
		value := (base+trend*float64(i))*weekdayFactors[date.Weekday()] + rand.NormFloat64()*base*0.05

		points = append(points, domain.LaborHistoryPoint{
			Date:          date,
			WorkersNeeded: math.Max(0, math.Round(value)),
		})
	}

	return points
}

func GenerateRandomLaborHistoryMeta() *domain.LaborHistory {
	return &domain.LaborHistory{
		Name:        "用工历史" + GenerateRandomID(3, 3),
		Description: "用工历史描述" + GenerateRandomID(20, 10),
	}
}
