package core

// Generation vocabularies. Reads never assume a stored value belongs to one of them.
var (
	FirstNames = []string{
		"Mohammed", "Fatima", "Ahmed", "Aisha", "Hassan", "Khadija", "Youssef", "Zainab",
		"Omar", "Mariam", "Ali", "Nour", "Karim", "Salma", "Amine", "Layla",
		"Jean", "Marie", "Pierre", "Sophie", "Luc", "Emma", "Marc", "Julie",
		"John", "Sarah", "Michael", "Emily", "David", "Anna", "James", "Lisa",
	}

	LastNames = []string{
		"Alami", "Benali", "Idrissi", "El Amrani", "Tazi", "Kabbaj", "Benjelloun", "Fassi",
		"Martin", "Bernard", "Dubois", "Thomas", "Robert", "Richard", "Petit", "Durand",
		"Smith", "Johnson", "Williams", "Brown", "Jones", "Garcia", "Miller", "Davis",
		"Lopez", "Rodriguez", "Martinez", "Hernandez", "Gonzalez", "Wilson", "Anderson", "Taylor",
	}

	Countries = []string{
		"Morocco", "France", "Canada", "Spain", "Belgium", "Switzerland",
		"USA", "Germany", "Italy", "Portugal",
	}

	Professions = []string{
		"Engineer", "Doctor", "Teacher", "Entrepreneur", "Student",
		"Developer", "Manager", "Consultant", "Architect", "Designer",
		"Accountant", "Lawyer", "Pharmacist", "Nurse", "Salesperson",
	}

	Categories = []string{
		CategoryComputing, CategoryHealth, CategoryEducation, CategoryTravel, CategoryFood,
		CategoryClothing, CategoryElectronics, "sports", "culture", CategoryAutomotive,
		CategoryRealEstate, "services", "leisure", CategoryBeauty, "furniture",
	}

	PaymentModes = []string{"card", "cash", "transfer", "paypal", "crypto"}
)

// Categories with a dedicated amount range.
const (
	CategoryComputing   = "computing"
	CategoryElectronics = "electronics"
	CategoryRealEstate  = "real-estate"
	CategoryAutomotive  = "automotive"
	CategoryTravel      = "travel"
	CategoryFood        = "food"
	CategoryClothing    = "clothing"
	CategoryBeauty      = "beauty"
	CategoryHealth      = "health"
	CategoryEducation   = "education"
)
