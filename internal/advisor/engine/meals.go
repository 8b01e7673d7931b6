// ============================================================================
// Nexus Finance Platform
// ============================================================================
//
// Package:     engine
// Description: Regional meal templates and seeded 7-day plan generation
// ============================================================================

package engine

import (
	"math"
	"math/rand"
	"strings"
	"time"
)

// mealTemplate is one entry of the regional meal library. Costs are VND
// base prices for a single person (dinners are priced for four).
type mealTemplate struct {
	Name        string
	Cost        float64
	Desc        string
	Ingredients []string
}

type mealLibrary struct {
	Breakfast []mealTemplate
	Lunch     []mealTemplate
	Dinner    []mealTemplate
}

var vietnameseMeals = mealLibrary{
	Breakfast: []mealTemplate{
		{"Bánh mì trứng", 20000, "Bánh mì with egg & pâté", []string{"Bread", "Egg", "Pate", "Vegetables"}},
		{"Phở bò", 45000, "Beef pho noodle soup", []string{"Rice noodles", "Beef", "Broth", "Herbs"}},
		{"Bún bò Huế", 40000, "Hue-style spicy noodle soup", []string{"Noodles", "Beef", "Pork", "Spices"}},
		{"Xôi gà", 25000, "Sticky rice with chicken", []string{"Sticky rice", "Chicken", "Fried onion"}},
		{"Cháo gà", 25000, "Chicken rice porridge", []string{"Rice", "Chicken", "Ginger", "Herbs"}},
		{"Bánh cuốn", 30000, "Steamed rice rolls", []string{"Rice sheet", "Minced pork", "Mushroom"}},
		{"Bún chả", 40000, "Grilled pork with noodles", []string{"Noodles", "Pork", "Fish sauce", "Herbs"}},
	},
	Lunch: []mealTemplate{
		{"Cơm tấm sườn", 45000, "Broken rice with grilled pork", []string{"Broken rice", "Pork chop", "Pickles"}},
		{"Bún thịt nướng", 40000, "Vermicelli with grilled meat", []string{"Vermicelli", "Pork", "Peanuts", "Herbs"}},
		{"Cơm gà xối mỡ", 45000, "Crispy chicken rice", []string{"Rice", "Chicken", "Sauce", "Salad"}},
		{"Mì Quảng", 35000, "Quang noodles", []string{"Noodles", "Shrimp", "Pork", "Peanut"}},
		{"Cơm văn phòng", 35000, "Office lunch set", []string{"Rice", "Protein", "Vegetables", "Soup"}},
		{"Hủ tiếu Nam Vang", 40000, "Phnom Penh noodle soup", []string{"Noodles", "Pork", "Shrimp", "Broth"}},
		{"Bún riêu cua", 35000, "Crab noodle soup", []string{"Noodles", "Crab paste", "Tomato", "Herbs"}},
	},
	Dinner: []mealTemplate{
		{"Cơm nhà (4 người)", 150000, "Rice, fish, vegetables, soup", []string{"Rice", "Fish", "Leafy greens", "Soup ingredients"}},
		{"Cơm nhà (4 người)", 120000, "Rice, braised pork, morning glory, broth", []string{"Rice", "Pork", "Morning glory", "Broth"}},
		{"Cơm nhà (4 người)", 180000, "Rice, grilled chicken, tofu, salad", []string{"Rice", "Chicken", "Tofu", "Vegetables"}},
		{"Cơm nhà (4 người)", 130000, "Rice, eggs, stir-fried vegetables, soup", []string{"Rice", "Eggs", "Vegetables", "Soup"}},
		{"Cơm nhà (4 người)", 160000, "Rice, steamed fish, beans, pumpkin soup", []string{"Rice", "Fish", "Beans", "Pumpkin"}},
		{"Cơm nhà (4 người)", 140000, "Rice, pork belly, bitter melon, broth", []string{"Rice", "Pork belly", "Bitter melon", "Broth"}},
		{"Cơm nhà (4 người)", 170000, "Rice, beef stew, greens, fruit", []string{"Rice", "Beef", "Leafy greens", "Fruit"}},
	},
}

var westernMeals = mealLibrary{
	Breakfast: []mealTemplate{
		{"Oatmeal Bowl", 60000, "Oats, berries, yogurt", []string{"Oats", "Berries", "Yogurt", "Honey"}},
		{"Scrambled Eggs Toast", 70000, "Eggs with whole-grain toast", []string{"Eggs", "Bread", "Butter", "Salad"}},
		{"Bagel & Cream Cheese", 75000, "Classic morning combo", []string{"Bagel", "Cream cheese", "Fruit"}},
		{"Greek Yogurt Parfait", 68000, "Protein-rich parfait", []string{"Yogurt", "Granola", "Banana"}},
		{"Pancake Set", 85000, "Pancakes and fruit", []string{"Flour", "Milk", "Eggs", "Syrup"}},
	},
	Lunch: []mealTemplate{
		{"Chicken Salad Bowl", 120000, "Chicken breast with mixed greens", []string{"Chicken", "Lettuce", "Tomato", "Olive oil"}},
		{"Turkey Sandwich", 110000, "Whole grain sandwich", []string{"Bread", "Turkey", "Cheese", "Vegetables"}},
		{"Pasta Marinara", 130000, "Tomato basil pasta", []string{"Pasta", "Tomato", "Basil", "Parmesan"}},
		{"Sushi Bento", 150000, "Rice + fish + greens", []string{"Rice", "Fish", "Seaweed", "Vegetables"}},
		{"Taco Bowl", 125000, "Beans, protein, rice", []string{"Rice", "Beans", "Beef", "Salsa"}},
	},
	Dinner: []mealTemplate{
		{"Home Dinner (4 people)", 420000, "Grilled salmon, vegetables, soup", []string{"Salmon", "Potatoes", "Vegetables", "Soup"}},
		{"Home Dinner (4 people)", 390000, "Roast chicken, salad, pasta", []string{"Chicken", "Salad", "Pasta", "Bread"}},
		{"Home Dinner (4 people)", 450000, "Beef stew and whole grain rice", []string{"Beef", "Carrot", "Rice", "Broth"}},
		{"Home Dinner (4 people)", 370000, "Pork chops, corn, greens", []string{"Pork", "Corn", "Greens", "Soup"}},
		{"Home Dinner (4 people)", 410000, "Tofu stir-fry and soup", []string{"Tofu", "Vegetables", "Rice", "Soup"}},
	},
}

var latamMeals = mealLibrary{
	Breakfast: []mealTemplate{
		{"Arepa con queso", 45000, "Arepa con queso fresco", []string{"Harina de maiz", "Queso", "Mantequilla"}},
		{"Tostada con huevo", 42000, "Pan tostado y huevo", []string{"Pan", "Huevo", "Tomate"}},
		{"Avena y fruta", 40000, "Avena con banana", []string{"Avena", "Leche", "Banana"}},
		{"Chilaquiles", 55000, "Totopos con salsa", []string{"Tortilla", "Salsa", "Queso"}},
		{"Empanada y cafe", 48000, "Desayuno rapido", []string{"Harina", "Carne", "Cafe"}},
	},
	Lunch: []mealTemplate{
		{"Pollo a la plancha", 85000, "Pollo con arroz y ensalada", []string{"Pollo", "Arroz", "Verduras"}},
		{"Taco plate", 90000, "Tacos con frijoles", []string{"Tortilla", "Carne", "Frijoles"}},
		{"Arroz con mariscos", 98000, "Arroz de mariscos", []string{"Arroz", "Mariscos", "Aji"}},
		{"Burrito bowl", 93000, "Bowl con proteina", []string{"Arroz", "Frijoles", "Carne", "Salsa"}},
		{"Sopa + sandwich", 76000, "Menu ligero", []string{"Pan", "Queso", "Sopa"}},
	},
	Dinner: []mealTemplate{
		{"Cena casera (4 personas)", 260000, "Arroz, pollo, ensalada, sopa", []string{"Arroz", "Pollo", "Verduras", "Sopa"}},
		{"Cena casera (4 personas)", 280000, "Pescado al horno y vegetales", []string{"Pescado", "Papas", "Verduras"}},
		{"Cena casera (4 personas)", 240000, "Lentejas con carne", []string{"Lentejas", "Carne", "Arroz"}},
		{"Cena casera (4 personas)", 270000, "Tortilla, carne y ensalada", []string{"Tortilla", "Carne", "Verduras"}},
		{"Cena casera (4 personas)", 250000, "Pasta y verduras", []string{"Pasta", "Salsa", "Verduras"}},
	},
}

var mealLibraryByRegion = map[string]mealLibrary{
	"asia":    vietnameseMeals,
	"western": westernMeals,
	"latam":   latamMeals,
}

var snackPoolByRegion = map[string][]mealTemplate{
	"western": {
		{"Greek yogurt + berries", 85000, "High protein snack", []string{"Yogurt", "Berries"}},
		{"Mixed nuts + milk", 95000, "Healthy fats and protein", []string{"Nuts", "Milk"}},
		{"Banana + peanut butter toast", 78000, "Fiber and energy", []string{"Banana", "Peanut butter", "Bread"}},
	},
	"latam": {
		{"Fruta + yogur", 42000, "Snack ligero", []string{"Fruta", "Yogur"}},
		{"Nueces + leche", 46000, "Snack proteico", []string{"Nueces", "Leche"}},
		{"Tostada integral", 39000, "Snack de fibra", []string{"Pan integral", "Queso"}},
	},
	"asia": {
		{"Trái cây + sữa chua", 18000, "Bữa phụ nhẹ", []string{"Trái cây", "Sữa chua"}},
		{"Hạt + sữa", 22000, "Bữa phụ giàu đạm", []string{"Hạt", "Sữa"}},
		{"Khoai lang luộc", 12000, "Bữa phụ nhiều chất xơ", []string{"Khoai lang"}},
	},
}

// countryRegionHints maps ISO country codes to a meal region
var countryRegionHints = map[string]string{
	"US": "western", "CA": "western", "GB": "western", "AU": "western",
	"NZ": "western", "IE": "western", "DE": "western", "FR": "western",
	"IT": "western",
	"ES": "latam", "MX": "latam", "AR": "latam", "CL": "latam",
	"CO": "latam", "PE": "latam",
	"VN": "asia", "TH": "asia", "MY": "asia", "SG": "asia",
	"JP": "asia", "KR": "asia", "CN": "asia", "IN": "asia",
}

// queryCountryHints recognizes common city names in the location text
var queryCountryHints = map[string]string{
	"new york": "US", "newyork": "US", "san francisco": "US",
	"los angeles": "US", "california": "US", "texas": "US",
	"london": "GB", "madrid": "ES", "barcelona": "ES",
	"mexico city": "MX", "tokyo": "JP", "seoul": "KR", "singapore": "SG",
	"hanoi": "VN", "ha noi": "VN", "ho chi minh": "VN", "saigon": "VN",
	"da nang": "VN", "danang": "VN",
}

// countryBaseMultiplier scales the VND meal baseline per country
var countryBaseMultiplier = map[string]float64{
	"US": 2.45, "CA": 2.1, "GB": 2.2, "AU": 2.2, "NZ": 1.95,
	"SG": 2.0, "JP": 2.1, "KR": 1.8, "DE": 1.95, "FR": 1.9,
	"IT": 1.75, "ES": 1.45, "MX": 1.2, "AR": 1.1, "CL": 1.2,
	"CO": 1.05, "PE": 1.0, "VN": 1.0, "TH": 0.95, "MY": 1.0,
	"IN": 0.85, "CN": 1.1,
}

var localizedDays = map[string][]string{
	"vi": {"Thứ 2", "Thứ 3", "Thứ 4", "Thứ 5", "Thứ 6", "Thứ 7", "Chủ nhật"},
	"en": {"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"},
	"es": {"Lunes", "Martes", "Miercoles", "Jueves", "Viernes", "Sabado", "Domingo"},
}

func dayNames(locale string) []string {
	if days, ok := localizedDays[locale]; ok {
		return days
	}
	return localizedDays["en"]
}

// guessCountryCode extracts a country code from the free-text location
func guessCountryCode(query string) string {
	lowered := strings.ToLower(query)
	for hint, code := range queryCountryHints {
		if strings.Contains(lowered, hint) {
			return code
		}
	}
	for code := range countryRegionHints {
		if strings.Contains(strings.ToUpper(query), " "+code) ||
			strings.EqualFold(strings.TrimSpace(query), code) {
			return code
		}
	}
	return ""
}

func baseMultiplierByCountry(countryCode, locale string) float64 {
	code := strings.ToUpper(strings.TrimSpace(countryCode))
	if m, ok := countryBaseMultiplier[code]; ok {
		return m
	}
	switch locale {
	case "en":
		return 1.35
	case "es":
		return 1.15
	default:
		return 1.0
	}
}

func mealRegion(countryCode string) string {
	code := strings.ToUpper(strings.TrimSpace(countryCode))
	if region, ok := countryRegionHints[code]; ok {
		return region
	}
	return "asia"
}

// estimateFoodContext derives the regional price baseline from the
// free-text location and locale, without external geocoding
func estimateFoodContext(location, locale string) *FoodPriceContext {
	query := strings.Join(strings.Fields(location), " ")
	country := guessCountryCode(query)
	multiplier := baseMultiplierByCountry(country, locale)

	resolved := query
	if resolved == "" {
		switch locale {
		case "vi":
			resolved = "Việt Nam"
		case "es":
			resolved = "Zona local"
		default:
			resolved = "Local region"
		}
	}

	var note string
	switch locale {
	case "vi":
		note = "Ước tính theo khu vực. Hãy nhập địa chỉ đầy đủ để tăng độ chính xác."
	case "es":
		note = "Estimacion regional. Agrega una direccion completa para mayor precision."
	default:
		note = "Estimated by regional baseline. Add a full address for more precise local pricing."
	}

	return &FoodPriceContext{
		Query:                   query,
		ResolvedLocation:        resolved,
		CountryCode:             country,
		LocalPriceMultiplier:    multiplier,
		AverageRestaurantMeal:   math.Round(90_000 * multiplier),
		EstimatedHomeMealPerson: math.Round(38_000 * multiplier),
		Note:                    note,
	}
}

// buildIngredientLines splits a meal cost across its ingredients with
// random weights; the last ingredient absorbs the rounding remainder
func buildIngredientLines(names []string, totalCost float64, rng *rand.Rand) []IngredientLine {
	if len(names) == 0 {
		return nil
	}
	weights := make([]float64, len(names))
	totalWeight := 0.0
	for i := range names {
		weights[i] = 0.6 + rng.Float64()
		totalWeight += weights[i]
	}

	lines := make([]IngredientLine, 0, len(names))
	allocated := 0.0
	for i, name := range names {
		var cost float64
		if i == len(names)-1 {
			cost = math.Max(0, totalCost-allocated)
		} else {
			cost = math.Round(totalCost * weights[i] / totalWeight)
			allocated += cost
		}
		lines = append(lines, IngredientLine{Name: name, EstimatedCost: cost})
	}
	return lines
}

// generateMealPlan produces a deterministic 7-day plan. The same seed,
// locale, family size, and location always yield the same plan.
func generateMealPlan(in Input, food *FoodPriceContext) []DailyMeal {
	days := dayNames(in.Locale)
	multiplier := clamp(food.LocalPriceMultiplier, 0.6, 2.8)
	family := float64(in.FamilySize)

	var seed int64
	if in.MealSeed != nil {
		seed = *in.MealSeed
	} else {
		seed = time.Now().UnixMilli() ^ int64(in.Income) ^ int64(in.FamilySize*131)
	}
	if seed < 0 {
		seed = -seed
	}
	// Mix and index in uint64: negating MinInt64 stays negative, and the
	// multiplied offsets below can wrap, so signed modulo could go negative.
	mix := uint64(seed)
	mix = mix ^ (mix >> 5) ^ (mix >> 11)
	rng := rand.New(rand.NewSource(int64(mix)))

	region := mealRegion(food.CountryCode)
	library := mealLibraryByRegion[region]
	snacks := snackPoolByRegion[region]

	plan := make([]DailyMeal, 0, len(days))
	for dayIdx, day := range days {
		bIdx := int((mix + uint64(dayIdx)*2 + 1) % uint64(len(library.Breakfast)))
		lIdx := int((mix*3 + uint64(dayIdx)*3 + 2) % uint64(len(library.Lunch)))
		dIdx := int((mix*5 + uint64(dayIdx)*5 + 3) % uint64(len(library.Dinner)))

		b := library.Breakfast[bIdx]
		l := library.Lunch[lIdx]
		d := library.Dinner[dIdx]

		dayFactor := 0.94 + rng.Float64()*(1.12-0.94)
		bCost := math.Round(b.Cost * family * multiplier * dayFactor)
		lCost := math.Round(l.Cost * family * multiplier * dayFactor)
		dCost := math.Round(d.Cost * (family / 4.0) * multiplier * dayFactor)

		breakfast := MealItem{Name: b.Name, Cost: bCost, Description: b.Desc,
			Ingredients: buildIngredientLines(b.Ingredients, bCost, rng)}
		lunch := MealItem{Name: l.Name, Cost: lCost, Description: l.Desc,
			Ingredients: buildIngredientLines(l.Ingredients, lCost, rng)}
		dinner := MealItem{Name: d.Name, Cost: dCost, Description: d.Desc,
			Ingredients: buildIngredientLines(d.Ingredients, dCost, rng)}

		var snack *MealItem
		if rng.Float64() >= 0.45 {
			s := snacks[rng.Intn(len(snacks))]
			sFactor := 0.9 + rng.Float64()*(1.15-0.9)
			sCost := math.Round(s.Cost * family * multiplier * sFactor)
			snack = &MealItem{Name: s.Name, Cost: sCost, Description: s.Desc,
				Ingredients: buildIngredientLines(s.Ingredients, sCost, rng)}
		}

		total := breakfast.Cost + lunch.Cost + dinner.Cost
		if snack != nil {
			total += snack.Cost
		}
		plan = append(plan, DailyMeal{
			Day:       day,
			Breakfast: breakfast,
			Lunch:     lunch,
			Dinner:    dinner,
			Snack:     snack,
			TotalCost: total,
		})
	}
	return plan
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
