package square

import "posbridge/internal/model"

type catalogObject struct {
    ID           string `json:"id"`
    Type         string `json:"type"`
    CategoryData struct {
        Name string `json:"name"`
    } `json:"category_data"`
    ItemData struct {
        Name        string `json:"name"`
        Description string `json:"description"`
        CategoryID  string `json:"category_id"`
        Categories  []struct {
            ID string `json:"id"`
        } `json:"categories"`
        Variations []struct {
            ID                string `json:"id"`
            ItemVariationData struct {
                PriceMoney struct {
                    Amount int64 `json:"amount"`
                } `json:"price_money"`
                LocationOverrides []struct {
                    LocationID string `json:"location_id"`
                    PriceMoney struct {
                        Amount int64 `json:"amount"`
                    } `json:"price_money"`
                } `json:"location_overrides"`
            } `json:"item_variation_data"`
        } `json:"variations"`
        ModifierListInfo []struct {
            ModifierListID       string `json:"modifier_list_id"`
            MinSelectedModifiers int    `json:"min_selected_modifiers"`
            MaxSelectedModifiers int    `json:"max_selected_modifiers"`
        } `json:"modifier_list_info"`
    } `json:"item_data"`
    ModifierListData struct {
        Name      string `json:"name"`
        Modifiers []struct {
            ID           string `json:"id"`
            ModifierData struct {
                Name       string `json:"name"`
                PriceMoney struct {
                    Amount int64 `json:"amount"`
                } `json:"price_money"`
            } `json:"modifier_data"`
        } `json:"modifiers"`
    } `json:"modifier_list_data"`
}

// buildMenu flattens the catalog into a single "main" menu. Items with no
// category reference land in a synthetic "Other Items" bucket.
func buildMenu(catalog []catalogObject, locationID string) model.Menu {
    categories := map[string]catalogObject{}
    var categoryOrder []string
    var items []catalogObject
    modifierLists := map[string]catalogObject{}

    for _, obj := range catalog {
        switch obj.Type {
        case "CATEGORY":
            if _, seen := categories[obj.ID]; !seen {
                categoryOrder = append(categoryOrder, obj.ID)
            }
            categories[obj.ID] = obj
        case "ITEM":
            items = append(items, obj)
        case "MODIFIER_LIST":
            modifierLists[obj.ID] = obj
        }
    }

    byCategory := map[string][]catalogObject{}
    var uncategorized []catalogObject
    for _, it := range items {
        switch {
        case it.ItemData.CategoryID != "":
            byCategory[it.ItemData.CategoryID] = append(byCategory[it.ItemData.CategoryID], it)
        case len(it.ItemData.Categories) > 0:
            for _, ref := range it.ItemData.Categories {
                byCategory[ref.ID] = append(byCategory[ref.ID], it)
            }
        default:
            uncategorized = append(uncategorized, it)
        }
    }

    menu := model.Menu{ID: "main", Name: "Menu", IsActive: true}
    sort := 0
    for _, catID := range categoryOrder {
        catItems := byCategory[catID]
        if len(catItems) == 0 {
            continue
        }
        cat := model.MenuCategory{ID: catID, Name: categories[catID].CategoryData.Name, SortOrder: sort}
        for _, it := range catItems {
            cat.Items = append(cat.Items, parseItem(it, locationID, modifierLists))
        }
        menu.Categories = append(menu.Categories, cat)
        sort++
    }
    if len(uncategorized) > 0 {
        cat := model.MenuCategory{ID: "uncategorized", Name: "Other Items", SortOrder: sort}
        for _, it := range uncategorized {
            cat.Items = append(cat.Items, parseItem(it, locationID, modifierLists))
        }
        menu.Categories = append(menu.Categories, cat)
    }
    return menu
}

// parseItem resolves the price from the first variation with a non-zero
// price, preferring a location-specific override over the base price.
func parseItem(raw catalogObject, locationID string, modifierLists map[string]catalogObject) model.MenuItem {
    var price int64
    for _, v := range raw.ItemData.Variations {
        for _, o := range v.ItemVariationData.LocationOverrides {
            if o.LocationID == locationID && o.PriceMoney.Amount != 0 {
                price = o.PriceMoney.Amount
                break
            }
        }
        if price == 0 {
            price = v.ItemVariationData.PriceMoney.Amount
        }
        if price > 0 {
            break
        }
    }

    item := model.MenuItem{
        ID:          raw.ID,
        Name:        raw.ItemData.Name,
        Description: raw.ItemData.Description,
        PriceCents:  price,
        IsAvailable: true, // refined by the availability check
    }
    for _, info := range raw.ItemData.ModifierListInfo {
        list, ok := modifierLists[info.ModifierListID]
        if !ok {
            continue
        }
        group := model.ModifierGroup{
            ID:            info.ModifierListID,
            Name:          list.ModifierListData.Name,
            MinSelections: info.MinSelectedModifiers,
            MaxSelections: info.MaxSelectedModifiers,
            Required:      info.MinSelectedModifiers > 0,
        }
        if group.MaxSelections == 0 {
            group.MaxSelections = 1
        }
        for _, m := range list.ModifierListData.Modifiers {
            group.Modifiers = append(group.Modifiers, model.Modifier{
                ID:          m.ID,
                Name:        m.ModifierData.Name,
                PriceCents:  m.ModifierData.PriceMoney.Amount,
                IsAvailable: true, // Square does not track modifier availability
            })
        }
        item.ModifierGroups = append(item.ModifierGroups, group)
    }
    return item
}
