package toast

import (
    "math"
    "strings"

    "posbridge/internal/model"
)

type rawMenu struct {
    GUID         string `json:"guid"`
    Name         string `json:"name"`
    Description  string `json:"description"`
    Availability struct {
        StartTime string `json:"startTime"`
        EndTime   string `json:"endTime"`
    } `json:"availability"`
    MenuGroups []rawGroup `json:"menuGroups"`
}

type rawGroup struct {
    GUID        string    `json:"guid"`
    Name        string    `json:"name"`
    Description string    `json:"description"`
    MenuItems   []rawItem `json:"menuItems"`
}

type rawItem struct {
    GUID        string  `json:"guid"`
    Name        string  `json:"name"`
    Description string  `json:"description"`
    Price       float64 `json:"price"` // dollars
    Prices      []struct {
        Price float64 `json:"price"`
    } `json:"prices"`
    ImageURL   string   `json:"imageUrl"`
    Image      string   `json:"image"`
    Visibility string   `json:"visibility"`
    Allergens  []string `json:"allergens"`
    Tags       []struct {
        Name string `json:"name"`
    } `json:"tags"`
    ModifierGroups []rawModifierGroup `json:"modifierGroups"`
}

type rawModifierGroup struct {
    GUID          string        `json:"guid"`
    Name          string        `json:"name"`
    MinSelections int           `json:"minSelections"`
    MaxSelections *int          `json:"maxSelections"`
    Modifiers     []rawModifier `json:"modifiers"`
}

type rawModifier struct {
    GUID       string  `json:"guid"`
    Name       string  `json:"name"`
    Price      float64 `json:"price"`
    Visibility string  `json:"visibility"`
}

func parseMenu(raw rawMenu) model.Menu {
    m := model.Menu{
        ID:          raw.GUID,
        Name:        raw.Name,
        Description: raw.Description,
        IsActive:    true,
    }
    for i, g := range raw.MenuGroups {
        m.Categories = append(m.Categories, parseCategory(g, i, raw.Availability.StartTime, raw.Availability.EndTime))
    }
    return m
}

func parseCategory(raw rawGroup, sort int, menuStart, menuEnd string) model.MenuCategory {
    c := model.MenuCategory{
        ID:          raw.GUID,
        Name:        raw.Name,
        Description: raw.Description,
        SortOrder:   sort,
    }
    for _, it := range raw.MenuItems {
        c.Items = append(c.Items, parseItem(it, menuStart, menuEnd))
    }
    return c
}

func parseItem(raw rawItem, menuStart, menuEnd string) model.MenuItem {
    tags := map[string]bool{}
    var allergens []string
    for _, t := range raw.Tags {
        name := strings.ToLower(t.Name)
        if after, ok := strings.CutPrefix(name, "allergen:"); ok {
            allergens = append(allergens, strings.TrimSpace(after))
            continue
        }
        tags[name] = true
    }
    allergens = append(allergens, raw.Allergens...)

    var dietary []string
    if tags["vegetarian"] {
        dietary = append(dietary, "vegetarian")
    }
    if tags["vegan"] {
        dietary = append(dietary, "vegan")
    }
    if tags["gluten-free"] || tags["gluten free"] {
        dietary = append(dietary, "gluten-free")
    }

    item := model.MenuItem{
        ID:             raw.GUID,
        Name:           raw.Name,
        Description:    raw.Description,
        PriceCents:     dollarsToCents(extractPrice(raw)),
        IsAvailable:    raw.Visibility != "NONE",
        ImageURL:       firstNonEmpty(raw.ImageURL, raw.Image),
        DietaryTags:    dietary,
        Allergens:      allergens,
        AvailableFrom:  hhmm(menuStart),
        AvailableUntil: hhmm(menuEnd),
    }
    for _, mg := range raw.ModifierGroups {
        item.ModifierGroups = append(item.ModifierGroups, parseModifierGroup(mg))
    }
    return item
}

func parseModifierGroup(raw rawModifierGroup) model.ModifierGroup {
    maxSel := 1
    if raw.MaxSelections != nil {
        maxSel = *raw.MaxSelections
    }
    g := model.ModifierGroup{
        ID:            raw.GUID,
        Name:          raw.Name,
        MinSelections: raw.MinSelections,
        MaxSelections: maxSel,
        Required:      raw.MinSelections > 0,
    }
    for _, m := range raw.Modifiers {
        g.Modifiers = append(g.Modifiers, model.Modifier{
            ID:          m.GUID,
            Name:        m.Name,
            PriceCents:  dollarsToCents(m.Price),
            IsAvailable: m.Visibility != "NONE",
        })
    }
    return g
}

// extractPrice prefers the direct price field, then the first entry of the
// nested prices list.
func extractPrice(raw rawItem) float64 {
    if raw.Price != 0 {
        return raw.Price
    }
    if len(raw.Prices) > 0 {
        return raw.Prices[0].Price
    }
    return 0
}

// dollarsToCents converts Toast's dollar amounts to integer cents.
func dollarsToCents(d float64) int64 {
    return int64(math.Round(d * 100))
}

// hhmm trims Toast's "HH:MM:SS" availability times to "HH:MM".
func hhmm(s string) string {
    if len(s) >= 5 {
        return s[:5]
    }
    return s
}

func firstNonEmpty(vals ...string) string {
    for _, v := range vals {
        if v != "" {
            return v
        }
    }
    return ""
}
