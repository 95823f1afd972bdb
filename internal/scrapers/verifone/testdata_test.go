package verifone

const listFixture = `{
  "actions": [],
  "context": {
    "globalValueProviders": [
      {"type": "$Locale", "values": {}},
      {"type": "$Browser", "values": {}},
      {"values": {"records": {
        "0WOb": {"WorkOrder": {}},
        "0WOa": {"WorkOrder": {}},
        "0WOc": {"WorkOrder": {"record": {"fields": {"Id": {"value": "0WOc"}}}}}
      }}}
    ]
  }
}`

const detailFixture = `{
  "context": {
    "globalValueProviders": [
      {"type": "$Label", "values": {"records": "not a map either"}},
      {"type": "$Record", "values": {
        "records": {
          "0WO1": {"WorkOrder": {"record": {"fields": {
            "WorkOrderNumber": {"value": "00012345", "displayValue": null},
            "Bank_Brand__r": {"displayValue": null, "value": {"apiName": "Bank__c", "fields": {"Name": {"value": "ANZ"}}}},
            "Work_Order_Type__c": {"displayValue": "Install", "value": "INSTALL"},
            "Zone__c": {"displayValue": "Metro", "value": "M"},
            "On_Site_Start_Time__c": {"displayValue": "30/08/2025 7:15 PM", "value": "2025-08-30T09:15:00.000Z"},
            "On_Site_End_Time__c": {"displayValue": "30/08/2025 8:00 PM", "value": "2025-08-30T10:00:00.000Z"},
            "WorkType": {"displayValue": "Move 5000", "value": "0WT1"},
            "Status": {"displayValue": "On Site", "value": "OnSite"}
          }}}},
          "0WO2": {"WorkOrder": {"record": {"fields": {
            "WorkOrderNumber": "00012346",
            "Bank_Brand__r": {"displayValue": "None", "value": null},
            "Work_Order_Type__c": {"displayValue": null, "value": "Swap"},
            "WorkType": {"displayValue": "Castles S1F2"}
          }}}}
        },
        "recordErrors": {"0WODENIED": {"statusCode": 403}}
      }}
    ]
  }
}`

const sensitiveFixture = `{
  "actions": [{
    "id": "69;a",
    "state": "SUCCESS",
    "returnValue": {"response": {"outputVariables": [
      {"name": "WorkOrder", "value": {"terminal_id_c__c": "T1000", "street__c": "12 George St"}},
      {"name": "Address", "value": {"City": "Sydney", "PostalCode": "2000"}}
    ]}}
  }]
}`
