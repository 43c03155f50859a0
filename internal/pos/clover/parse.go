package clover

import "posbridge/internal/model"

type rawCategory struct {
    ID        string `json:"id"`
    Name      string `json:"name"`
    SortOrder int    `json:"sortOrder"`
}

type rawItem struct {
    ID            string `json:"id"`
    Name          string `json:"name"`
    AlternateName string `json:"alternateName"`
    Price         int64  `json:"price"` // cents
    Hidden        bool   `json:"hidden"`
    Categories    struct {
        Elements []struct {
            ID string `json:"id"`
        } `json:"elements"`
    } `json:"categories"`
    ModifierGroups struct {
        Elements []rawModifierGroup `json:"elements"`
    } `json:"modifierGroups"`
}

type rawModifierGroup struct {
    ID          string `json:"id"`
    Name        string `json:"name"`
    MinRequired int    `json:"minRequired"`
    MaxAllowed  *int   `json:"maxAllowed"`
    Modifiers   struct {
        Elements []struct {
            ID     string `json:"id"`
            Name   string `json:"name"`
            Price  int64  `json:"price"`
            Hidden bool   `json:"hidden"`
        } `json:"elements"`
    } `json:"modifiers"`
}

// buildMenu groups the flat item list under its categories, collecting
// items with no category into a synthetic "Other Items" bucket.
func buildMenu(categories []rawCategory, items []rawItem) model.Menu {
    byCategory := map[string][]rawItem{}
    var uncategorized []rawItem
    for _, it := range items {
        if len(it.Categories.Elements) == 0 {
            uncategorized = append(uncategorized, it)
            continue
        }
        for _, c := range it.Categories.Elements {
            byCategory[c.ID] = append(byCategory[c.ID], it)
        }
    }

    menu := model.Menu{ID: "main", Name: "Menu", IsActive: true}
    for i, c := range categories {
        cat := model.MenuCategory{ID: c.ID, Name: c.Name, SortOrder: i}
        for _, it := range byCategory[c.ID] {
            cat.Items = append(cat.Items, parseItem(it))
        }
        menu.Categories = append(menu.Categories, cat)
    }
    if len(uncategorized) > 0 {
        cat := model.MenuCategory{ID: "uncategorized", Name: "Other Items", SortOrder: len(categories)}
        for _, it := range uncategorized {
            cat.Items = append(cat.Items, parseItem(it))
        }
        menu.Categories = append(menu.Categories, cat)
    }
    return menu
}

func parseItem(raw rawItem) model.MenuItem {
    item := model.MenuItem{
        ID:          raw.ID,
        Name:        raw.Name,
        Description: raw.AlternateName,
        PriceCents:  raw.Price,
        IsAvailable: !raw.Hidden,
    }
    for _, mg := range raw.ModifierGroups.Elements {
        item.ModifierGroups = append(item.ModifierGroups, parseModifierGroup(mg))
    }
    return item
}

func parseModifierGroup(raw rawModifierGroup) model.ModifierGroup {
    maxSel := 1
    if raw.MaxAllowed != nil {
        maxSel = *raw.MaxAllowed
    }
    g := model.ModifierGroup{
        ID:            raw.ID,
        Name:          raw.Name,
        MinSelections: raw.MinRequired,
        MaxSelections: maxSel,
        Required:      raw.MinRequired > 0,
    }
    for _, m := range raw.Modifiers.Elements {
        g.Modifiers = append(g.Modifiers, model.Modifier{
            ID:          m.ID,
            Name:        m.Name,
            PriceCents:  m.Price,
            IsAvailable: !m.Hidden,
        })
    }
    return g
}
