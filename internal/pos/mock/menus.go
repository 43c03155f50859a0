package mock

import "posbridge/internal/model"

// DefaultMenus returns the built-in demo catalog: a breakfast menu with
// modifier groups and a lunch menu.
func DefaultMenus() []model.Menu {
    return []model.Menu{
        {
            ID:          "menu-breakfast",
            Name:        "Breakfast",
            Description: "Morning favorites",
            IsActive:    true,
            Categories: []model.MenuCategory{
                {
                    ID:   "cat-eggs",
                    Name: "Eggs & Omelets",
                    Items: []model.MenuItem{
                        {
                            ID:             "item-scrambled",
                            Name:           "Scrambled Eggs",
                            Description:    "Three farm-fresh eggs scrambled with butter",
                            PriceCents:     899,
                            IsAvailable:    true,
                            DietaryTags:    []string{"vegetarian"},
                            AvailableFrom:  "06:00",
                            AvailableUntil: "11:00",
                            ModifierGroups: []model.ModifierGroup{
                                {
                                    ID:            "mod-cheese",
                                    Name:          "Add Cheese",
                                    MinSelections: 0,
                                    MaxSelections: 1,
                                    Modifiers: []model.Modifier{
                                        {ID: "mod-cheddar", Name: "Cheddar", PriceCents: 150, IsAvailable: true},
                                        {ID: "mod-swiss", Name: "Swiss", PriceCents: 150, IsAvailable: true},
                                    },
                                },
                            },
                        },
                        {
                            ID:             "item-omelet",
                            Name:           "Western Omelet",
                            Description:    "Ham, peppers, onions, and cheese",
                            PriceCents:     1299,
                            IsAvailable:    true,
                            Allergens:      []string{"dairy"},
                            AvailableFrom:  "06:00",
                            AvailableUntil: "11:00",
                        },
                    },
                },
                {
                    ID:        "cat-pancakes",
                    Name:      "Pancakes & Waffles",
                    SortOrder: 1,
                    Items: []model.MenuItem{
                        {
                            ID:             "item-pancakes",
                            Name:           "Buttermilk Pancakes",
                            Description:    "Stack of three fluffy pancakes",
                            PriceCents:     999,
                            IsAvailable:    true,
                            DietaryTags:    []string{"vegetarian"},
                            Allergens:      []string{"gluten", "dairy"},
                            AvailableFrom:  "06:00",
                            AvailableUntil: "11:00",
                        },
                    },
                },
            },
        },
        {
            ID:          "menu-lunch",
            Name:        "Lunch",
            Description: "Midday meals",
            IsActive:    true,
            Categories: []model.MenuCategory{
                {
                    ID:   "cat-sandwiches",
                    Name: "Sandwiches",
                    Items: []model.MenuItem{
                        {
                            ID:             "item-club",
                            Name:           "Club Sandwich",
                            Description:    "Turkey, bacon, lettuce, tomato on toast",
                            PriceCents:     1399,
                            IsAvailable:    true,
                            Allergens:      []string{"gluten"},
                            AvailableFrom:  "11:00",
                            AvailableUntil: "16:00",
                        },
                        {
                            ID:             "item-veggie-wrap",
                            Name:           "Veggie Wrap",
                            Description:    "Fresh vegetables with hummus",
                            PriceCents:     1199,
                            IsAvailable:    true,
                            DietaryTags:    []string{"vegetarian", "vegan"},
                            Allergens:      []string{"gluten"},
                            AvailableFrom:  "11:00",
                            AvailableUntil: "16:00",
                        },
                    },
                },
            },
        },
    }
}
